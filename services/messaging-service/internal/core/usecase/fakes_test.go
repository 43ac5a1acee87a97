package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// tickingClock возвращает время, каждый вызов на секунду позже.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

type fakeConversationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Conversation
}

func newFakeConversationRepo(items ...*domain.Conversation) *fakeConversationRepo {
	r := &fakeConversationRepo{items: map[uuid.UUID]*domain.Conversation{}}
	for _, c := range items {
		r.items[c.ID] = c
	}
	return r
}

func (r *fakeConversationRepo) FindOrCreate(ctx context.Context, c *domain.Conversation) (*domain.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ListingID == c.ListingID && existing.BuyerID == c.BuyerID {
			existing.ListingTitle = c.ListingTitle
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *c
	r.items[c.ID] = &cp
	out := cp
	return &out, true, nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id, viewerID uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConversationRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.ConversationPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.items {
		if c.IsParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	page := pagination.BuildPage(out, limit, func(c domain.Conversation) pagination.Cursor { return c.ActivityCursor() })
	return &page, nil
}

func (r *fakeConversationRepo) AdvanceReadMarker(ctx context.Context, id, userID uuid.UUID, at time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	marker := &c.BuyerLastReadAt
	if userID == c.SellerID {
		marker = &c.SellerLastReadAt
	}
	if *marker == nil || at.After(**marker) {
		t := at
		*marker = &t
	}
	out := **marker
	return &out, nil
}

func (r *fakeConversationRepo) Reopen(ctx context.Context, id uuid.UUID, closedBefore time.Time) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	if c.Status == domain.ConversationClosed && c.ClosedAt != nil && !c.ClosedAt.Before(closedBefore) {
		return nil, domain.ErrConversationClosed
	}
	c.Status = domain.ConversationOpen
	c.ClosedAt = nil
	cp := *c
	return &cp, nil
}

func (r *fakeConversationRepo) CloseOpenByListing(ctx context.Context, listingID uuid.UUID, at time.Time) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.items {
		if c.ListingID == listingID && c.Status == domain.ConversationOpen {
			closedAt := at
			c.Status = domain.ConversationClosed
			c.ClosedAt = &closedAt
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu    sync.Mutex
	items []domain.Message
	err   error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Append(ctx context.Context, m *domain.Message) (*domain.SendResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if m.ClientMessageID != "" && m.SenderID != nil {
		for _, existing := range r.items {
			if existing.ConversationID == m.ConversationID && existing.IsFrom(*m.SenderID) && existing.ClientMessageID == m.ClientMessageID {
				return &domain.SendResult{Message: existing, Duplicate: true}, nil
			}
		}
	}
	r.items = append(r.items, *m)
	return &domain.SendResult{Message: *m}, nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (r *fakeMessageRepo) inConversation(id uuid.UUID) []domain.Message {
	var out []domain.Message
	for _, m := range r.items {
		if m.ConversationID == id {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeMessageRepo) ListBefore(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.MessagePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.inConversation(conversationID)
	var out []domain.Message
	for i := len(all) - 1; i >= 0; i-- {
		if cursor == nil || all[i].CreatedAt.Before(*cursor.Time) {
			out = append(out, all[i])
		}
	}
	page := pagination.BuildPage(out, limit, func(m domain.Message) pagination.Cursor { return m.CreatedCursor() })
	return &page, nil
}

func (r *fakeMessageRepo) ListAfter(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.MessagePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.inConversation(conversationID) {
		if cursor == nil || m.CreatedAt.After(*cursor.Time) {
			out = append(out, m)
		}
	}
	page := pagination.BuildPage(out, limit, func(m domain.Message) pagination.Cursor { return m.CreatedCursor() })
	return &page, nil
}

func (r *fakeMessageRepo) LatestCreatedAt(ctx context.Context, conversationID uuid.UUID) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.inConversation(conversationID)
	if len(all) == 0 {
		return nil, nil
	}
	t := all[len(all)-1].CreatedAt
	return &t, nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []*domain.Notification
	count int64
	err   error
	// afterCount вызывается после подсчета непрочитанных, до возврата результата.
	afterCount func()

	purgedBefore time.Time
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *n
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeNotificationRepo) forUser(userID uuid.UUID) []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) (*domain.NotificationPage, error) {
	var out []domain.Notification
	for _, n := range r.forUser(userID) {
		if !unreadOnly || n.ReadAt == nil {
			out = append(out, *n)
		}
	}
	page := pagination.BuildPage(out, limit, func(n domain.Notification) pagination.Cursor { return n.CreatedCursor() })
	return &page, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		for _, id := range ids {
			if item.ID == id && item.UserID == userID && item.ReadAt == nil {
				t := at
				item.ReadAt = &t
				n++
			}
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.UserID == userID && item.ReadAt == nil {
			t := at
			item.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	r.count++
	var n int64
	for _, item := range r.items {
		if item.UserID == userID && item.ReadAt == nil {
			n++
		}
	}
	hook := r.afterCount
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return n, nil
}

func (r *fakeNotificationRepo) PurgeRead(ctx context.Context, readBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgedBefore = readBefore
	return 3, nil
}

type fakeReportRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{items: map[uuid.UUID]*domain.Report{}}
}

func (r *fakeReportRepo) Create(ctx context.Context, rep *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ReporterID == rep.ReporterID && existing.TargetType == rep.TargetType &&
			existing.TargetID == rep.TargetID && !existing.Status.IsTerminal() {
			return domain.ErrDuplicateReport
		}
	}
	cp := *rep
	r.items[rep.ID] = &cp
	return nil
}

func (r *fakeReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.items[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r *fakeReportRepo) List(ctx context.Context, status domain.ReportStatus, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Report
	for _, rep := range r.items {
		if status == "" || rep.Status == status {
			out = append(out, *rep)
		}
	}
	page := pagination.BuildPage(out, limit, func(r domain.Report) pagination.Cursor { return r.CreatedCursor() })
	return &page, nil
}

func (r *fakeReportRepo) ListByReporter(ctx context.Context, reporterID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Report
	for _, rep := range r.items {
		if rep.ReporterID == reporterID {
			out = append(out, *rep)
		}
	}
	page := pagination.BuildPage(out, limit, func(r domain.Report) pagination.Cursor { return r.CreatedCursor() })
	return &page, nil
}

func (r *fakeReportRepo) UpdateStatus(ctx context.Context, id uuid.UUID, t domain.ReportTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.items[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	if rep.Status != t.From {
		return domain.ErrInvalidReportTransition
	}
	rep.Status = t.To
	rep.ResolvedBy = t.ResolvedBy
	rep.ResolvedAt = t.ResolvedAt
	rep.UpdatedAt = t.UpdatedAt
	if t.Note != "" {
		rep.ResolutionNote = t.Note
	}
	return nil
}

type fakeAnalyticsRepo struct {
	days int
}

func (r *fakeAnalyticsRepo) MessagingAnalytics(ctx context.Context, days int) (*domain.MessagingAnalytics, error) {
	r.days = days
	return &domain.MessagingAnalytics{Days: days}, nil
}

type fakeCache struct {
	mu          sync.Mutex
	values      map[uuid.UUID]int64
	generations map[uuid.UUID]int64
	invalidated []uuid.UUID
	err         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[uuid.UUID]int64{}, generations: map[uuid.UUID]int64{}}
}

func (c *fakeCache) Get(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	v, ok := c.values[userID]
	return v, ok, nil
}

func (c *fakeCache) Generation(ctx context.Context, userID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.generations[userID], nil
}

func (c *fakeCache) Set(ctx context.Context, userID uuid.UUID, count, generation int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.generations[userID] != generation {
		return false, nil
	}
	c.values[userID] = count
	return true, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.invalidated = append(c.invalidated, userID)
	c.generations[userID]++
	delete(c.values, userID)
	return nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []domain.RealtimeEvent
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, e domain.RealtimeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *fakeBroadcaster) ofType(t string) []domain.RealtimeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.RealtimeEvent
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeCatalog struct {
	listings map[uuid.UUID]*domain.ListingSummary
}

func newFakeCatalog(items ...*domain.ListingSummary) *fakeCatalog {
	c := &fakeCatalog{listings: map[uuid.UUID]*domain.ListingSummary{}}
	for _, l := range items {
		c.listings[l.ID] = l
	}
	return c
}

func (c *fakeCatalog) GetListingSummary(ctx context.Context, id uuid.UUID) (*domain.ListingSummary, error) {
	l, ok := c.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

type fakeLimiter struct {
	deny bool
}

func (l fakeLimiter) Allow(string) bool { return !l.deny }

// messagingWorld - набор фейков для сценариев переписки.
type messagingWorld struct {
	convs         *fakeConversationRepo
	messages      *fakeMessageRepo
	notifications *fakeNotificationRepo
	cache         *fakeCache
	broadcaster   *fakeBroadcaster
	notifier      *Notifier
}

func newMessagingWorld(convs ...*domain.Conversation) *messagingWorld {
	w := &messagingWorld{
		convs:         newFakeConversationRepo(convs...),
		messages:      newFakeMessageRepo(),
		notifications: &fakeNotificationRepo{},
		cache:         newFakeCache(),
		broadcaster:   &fakeBroadcaster{},
	}
	w.notifier = NewNotifier(w.notifications, w.cache, w.broadcaster)
	w.notifier.now = fixedClock(testNow)
	return w
}

func openConversation(buyer, seller uuid.UUID) *domain.Conversation {
	return &domain.Conversation{
		ID:            uuid.New(),
		ListingID:     uuid.New(),
		ListingTitle:  "Mountain bike",
		BuyerID:       buyer,
		SellerID:      seller,
		Status:        domain.ConversationOpen,
		LastMessageAt: testNow,
		CreatedAt:     testNow,
	}
}
