package constants

// Имена фоновых задач
const (
	JobArchiveExpiredListings = "archive_expired_listings"
)
