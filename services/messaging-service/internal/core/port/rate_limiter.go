package port

// RateLimiterPort ограничивает частоту операций по ключу.
type RateLimiterPort interface {
	Allow(key string) bool
}
