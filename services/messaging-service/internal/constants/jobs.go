package constants

// Имена фоновых задач
const (
	JobPurgeReadNotifications = "purge_read_notifications"
	JobCleanupRateLimiters    = "cleanup_rate_limiters"
)
