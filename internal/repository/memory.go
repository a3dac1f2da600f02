package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Snapshotter mirrors store collections to an external blob store (Redis
// in production wiring). Mirroring is best effort; the in-memory state
// stays authoritative.
type Snapshotter interface {
	Save(ctx context.Context, collection string, blob []byte) error
	Load(ctx context.Context, collection string) ([]byte, error)
}

// MemoryStore owns the in-memory collections backing the default
// repository implementations. All access is serialized through one mutex
// so a mutation (or a whole sweep pass over tickets) is one atomic step.
type MemoryStore struct {
	mu            sync.RWMutex
	tickets       map[string]*domain.Ticket
	notifications map[string]*domain.Notification
	users         map[string]*domain.User
	operators     map[string]*domain.Operator
	seq           int64
	snapshotter   Snapshotter
}

// NewMemoryStore initializes empty collections.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:       make(map[string]*domain.Ticket),
		notifications: make(map[string]*domain.Notification),
		users:         make(map[string]*domain.User),
		operators:     make(map[string]*domain.Operator),
	}
}

// SetSnapshotter attaches a mirror target for durability across restarts.
func (s *MemoryStore) SetSnapshotter(snap Snapshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotter = snap
}

// Restore repopulates the collections from a previously mirrored snapshot.
// Missing collections are skipped.
func (s *MemoryStore) Restore(ctx context.Context, snap Snapshotter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if blob, err := snap.Load(ctx, "tickets"); err == nil && len(blob) > 0 {
		var tickets []domain.Ticket
		if err := json.Unmarshal(blob, &tickets); err != nil {
			return err
		}
		for i := range tickets {
			ticket := tickets[i]
			s.tickets[ticket.ID] = &ticket
			if ticket.Seq > s.seq {
				s.seq = ticket.Seq
			}
		}
	}
	if blob, err := snap.Load(ctx, "notifications"); err == nil && len(blob) > 0 {
		var notifications []domain.Notification
		if err := json.Unmarshal(blob, &notifications); err != nil {
			return err
		}
		for i := range notifications {
			n := notifications[i]
			s.notifications[n.ID] = &n
		}
	}
	if blob, err := snap.Load(ctx, "users"); err == nil && len(blob) > 0 {
		var users []domain.User
		if err := json.Unmarshal(blob, &users); err != nil {
			return err
		}
		for i := range users {
			user := users[i]
			s.users[user.ID] = &user
		}
	}
	if blob, err := snap.Load(ctx, "operators"); err == nil && len(blob) > 0 {
		var operators []domain.Operator
		if err := json.Unmarshal(blob, &operators); err != nil {
			return err
		}
		for i := range operators {
			operator := operators[i]
			s.operators[operator.ID] = &operator
		}
	}
	return nil
}

// mirror is called with the write lock held.
func (s *MemoryStore) mirror(ctx context.Context, collection string) {
	if s.snapshotter == nil {
		return
	}
	var blob []byte
	var err error
	switch collection {
	case "tickets":
		blob, err = json.Marshal(s.ticketsLocked())
	case "notifications":
		blob, err = json.Marshal(s.notificationsLocked())
	case "users":
		blob, err = json.Marshal(s.usersLocked())
	case "operators":
		blob, err = json.Marshal(s.operatorsLocked())
	}
	if err != nil {
		return
	}
	_ = s.snapshotter.Save(ctx, collection, blob)
}

func (s *MemoryStore) ticketsLocked() []domain.Ticket {
	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		result = append(result, *cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result
}

func (s *MemoryStore) notificationsLocked() []domain.Notification {
	result := make([]domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		result = append(result, *cloneNotification(n))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (s *MemoryStore) usersLocked() []domain.User {
	result := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, *user)
	}
	return result
}

func (s *MemoryStore) operatorsLocked() []domain.Operator {
	result := make([]domain.Operator, 0, len(s.operators))
	for _, operator := range s.operators {
		result = append(result, *operator)
	}
	return result
}

// Tickets returns the in-memory TicketRepository view.
func (s *MemoryStore) Tickets() TicketRepository { return &memoryTickets{store: s} }

// Notifications returns the in-memory NotificationRepository view.
func (s *MemoryStore) Notifications() NotificationRepository { return &memoryNotifications{store: s} }

// Users returns the in-memory UserRepository view.
func (s *MemoryStore) Users() UserRepository { return &memoryUsers{store: s} }

// Operators returns the in-memory OperatorRepository view.
func (s *MemoryStore) Operators() OperatorRepository { return &memoryOperators{store: s} }

type memoryTickets struct {
	store *MemoryStore
}

func (m *memoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ticket.Seq = s.seq
	ticket.Number = domain.FormatTicketNumber(ticket.Seq)
	s.tickets[ticket.ID] = cloneTicket(ticket)
	s.mirror(ctx, "tickets")
	return nil
}

func (m *memoryTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[ticket.ID]; !ok {
		return ErrNotFound
	}
	s.tickets[ticket.ID] = cloneTicket(ticket)
	s.mirror(ctx, "tickets")
	return nil
}

func (m *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (m *memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

func matchesFilter(ticket *domain.Ticket, filter TicketFilter) bool {
	if filter.ConsumerNumber != nil && ticket.ConsumerNumber != *filter.ConsumerNumber {
		return false
	}
	if filter.Zone != nil && ticket.Zone != *filter.Zone {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	return true
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(priorities []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range priorities {
		if p == priority {
			return true
		}
	}
	return false
}

type memoryNotifications struct {
	store *MemoryStore
}

func (m *memoryNotifications) Append(ctx context.Context, notification *domain.Notification) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[notification.ID] = cloneNotification(notification)
	s.mirror(ctx, "notifications")
	return nil
}

func (m *memoryNotifications) ListByRole(_ context.Context, role domain.Role) ([]domain.Notification, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Notification
	for _, n := range s.notifications {
		if !n.VisibleTo(role) {
			continue
		}
		result = append(result, *cloneNotification(n))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *memoryNotifications) MarkRead(ctx context.Context, id string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Unread = false
	s.mirror(ctx, "notifications")
	return nil
}

type memoryUsers struct {
	store *MemoryStore
}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	s.mirror(ctx, "users")
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

type memoryOperators struct {
	store *MemoryStore
}

func (m *memoryOperators) Create(ctx context.Context, operator *domain.Operator) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *operator
	s.operators[operator.ID] = &copied
	s.mirror(ctx, "operators")
	return nil
}

func (m *memoryOperators) GetByID(_ context.Context, id string) (*domain.Operator, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	operator, ok := s.operators[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *operator
	return &copied, nil
}

func (m *memoryOperators) GetByEmail(_ context.Context, email string) (*domain.Operator, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, operator := range s.operators {
		if operator.Email == email {
			copied := *operator
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func cloneTicket(ticket *domain.Ticket) *domain.Ticket {
	copied := *ticket
	if ticket.AssignedTo != nil {
		v := *ticket.AssignedTo
		copied.AssignedTo = &v
	}
	if ticket.Feedback != nil {
		fb := *ticket.Feedback
		copied.Feedback = &fb
	}
	if ticket.EscalatedAt != nil {
		v := *ticket.EscalatedAt
		copied.EscalatedAt = &v
	}
	if ticket.ResolvedAt != nil {
		v := *ticket.ResolvedAt
		copied.ResolvedAt = &v
	}
	if ticket.ClosedAt != nil {
		v := *ticket.ClosedAt
		copied.ClosedAt = &v
	}
	return &copied
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	copied := *n
	copied.TargetRoles = append([]domain.Role(nil), n.TargetRoles...)
	return &copied
}
