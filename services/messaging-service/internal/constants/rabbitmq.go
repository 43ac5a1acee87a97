package constants

// Обменник доменных событий маркетплейса
const (
	EventsExchange     = "marketplace_events"
	EventsExchangeType = "topic"
)

// Очередь событий объявлений и ее инфраструктура ретраев
const (
	ListingEventsQueue       = "messaging.listing_events"
	ListingEventsRetryEx     = "messaging.listing_events.retry"
	ListingEventsRetryQueue  = "messaging.listing_events.wait"
	ListingEventsFinalDLX    = "messaging.dlx"
	ListingEventsFinalDLQ    = "messaging.listing_events.dlq"
	ListingEventsDLQKey      = "listing_events"
	ListingEventsConsumerTag = "messaging-listing-events"
)
