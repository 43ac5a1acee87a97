package domain

import "time"

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// MessagingAnalytics - агрегаты для админ-панели.
type MessagingAnalytics struct {
	Days                       int           `json:"days"`
	MessagesPerDay             []DailyCount  `json:"messages_per_day"`
	ConversationsPerDay        []DailyCount  `json:"conversations_per_day"`
	ReportsByStatus            []StatusCount `json:"reports_by_status"`
	MedianFirstResponseSeconds *float64      `json:"median_first_response_seconds"`
}
