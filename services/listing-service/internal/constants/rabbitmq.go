package constants

// Обменник доменных событий маркетплейса
const (
	EventsExchange     = "marketplace_events"
	EventsExchangeType = "topic"
)
