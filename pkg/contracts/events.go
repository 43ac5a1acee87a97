package contracts

// Типы событий (заголовок "event-type") и ключи маршрутизации шины.
const (
	EventVersion = "1.0.0"

	EventListingPublished = "ListingPublishedEvent"
	EventListingArchived  = "ListingArchivedEvent"
	EventInquiryCreated   = "InquiryCreatedEvent"

	RoutingKeyListingPublished = "listing.published"
	RoutingKeyListingArchived  = "listing.archived"
	RoutingKeyInquiryCreated   = "inquiry.created"

	HeaderEventType    = "event-type"
	HeaderEventVersion = "event-version"
	HeaderTraceID      = "x-trace-id"
)
