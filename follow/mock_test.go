package follow

import (
	"context"
	"errors"
	"sync"
	"time"

	"anketa-network/models"

	"github.com/google/uuid"
)

// MockBackend keeps per-user relationship records in memory. Update works on a
// copy of the state and swaps it in only when fn succeeds.
type MockBackend struct {
	mu         sync.Mutex
	records    map[uuid.UUID]*models.RelationshipRecord
	quotas     map[uuid.UUID]models.QuotaRecord
	DailyLimit int
	Now        func() time.Time

	// OneSidedFollow makes AddFollower forget the following side of the edge.
	OneSidedFollow bool
	Updates        int
	// LockedPairs lists every LockPair call made inside Update, in order.
	LockedPairs [][2]uuid.UUID
}

func NewMockBackend(dailyLimit int) *MockBackend {
	return &MockBackend{
		records:    make(map[uuid.UUID]*models.RelationshipRecord),
		quotas:     make(map[uuid.UUID]models.QuotaRecord),
		DailyLimit: dailyLimit,
		Now:        time.Now,
	}
}

func (m *MockBackend) Update(ctx context.Context, fn func(RelationshipStore, QuotaLedger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	u := m.clone()
	u.writable, u.locks = true, &m.LockedPairs
	if err := fn(u, u); err != nil {
		return err
	}
	m.records, m.quotas = u.records, u.quotas
	return nil
}

func (m *MockBackend) View(ctx context.Context, fn func(RelationshipStore, QuotaLedger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.clone()
	return fn(u, u)
}

// SetRemaining forces a quota value for test setup.
func (m *MockBackend) SetRemaining(user uuid.UUID, remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.quotas[user]
	q.UserID, q.DailyLimit, q.Remaining = user, m.DailyLimit, remaining
	m.quotas[user] = q
}

func (m *MockBackend) clone() *mockUnit {
	u := &mockUnit{
		records:        make(map[uuid.UUID]*models.RelationshipRecord, len(m.records)),
		quotas:         make(map[uuid.UUID]models.QuotaRecord, len(m.quotas)),
		dailyLimit:     m.DailyLimit,
		now:            m.Now,
		oneSidedFollow: m.OneSidedFollow,
	}
	for id, rec := range m.records {
		u.records[id] = &models.RelationshipRecord{
			UserID:          rec.UserID,
			Followers:       models.NewIDSet(rec.Followers.Sorted()...),
			Following:       models.NewIDSet(rec.Following.Sorted()...),
			PendingIncoming: models.NewIDSet(rec.PendingIncoming.Sorted()...),
		}
	}
	for id, q := range m.quotas {
		u.quotas[id] = q
	}
	return u
}

type mockUnit struct {
	records        map[uuid.UUID]*models.RelationshipRecord
	quotas         map[uuid.UUID]models.QuotaRecord
	dailyLimit     int
	now            func() time.Time
	oneSidedFollow bool

	writable bool
	locked   bool
	locks    *[][2]uuid.UUID
}

var errUnlockedPair = errors.New("graph accessed before LockPair")

func (u *mockUnit) LockPair(ctx context.Context, a, b uuid.UUID) error {
	u.locked = true
	if u.locks != nil {
		*u.locks = append(*u.locks, [2]uuid.UUID{a, b})
	}
	return nil
}

// checkLock fails graph access in a write unit that has not locked its pair.
func (u *mockUnit) checkLock() error {
	if u.writable && !u.locked {
		return errUnlockedPair
	}
	return nil
}

func (u *mockUnit) record(id uuid.UUID) *models.RelationshipRecord {
	rec, ok := u.records[id]
	if !ok {
		rec = &models.RelationshipRecord{UserID: id}
		u.records[id] = rec
	}
	return rec
}

func (u *mockUnit) IsFollower(ctx context.Context, target, candidate uuid.UUID) (bool, error) {
	if err := u.checkLock(); err != nil {
		return false, err
	}
	return u.record(target).Followers.Has(candidate), nil
}

func (u *mockUnit) HasPendingIncoming(ctx context.Context, target, candidate uuid.UUID) (bool, error) {
	if err := u.checkLock(); err != nil {
		return false, err
	}
	return u.record(target).PendingIncoming.Has(candidate), nil
}

func (u *mockUnit) AddFollower(ctx context.Context, target, newFollower uuid.UUID) error {
	if err := u.checkLock(); err != nil {
		return err
	}
	u.record(target).Followers.Add(newFollower)
	if !u.oneSidedFollow {
		u.record(newFollower).Following.Add(target)
	}
	return nil
}

func (u *mockUnit) AddPendingIncoming(ctx context.Context, target, requester uuid.UUID) error {
	if err := u.checkLock(); err != nil {
		return err
	}
	u.record(target).PendingIncoming.Add(requester)
	return nil
}

func (u *mockUnit) RemovePendingIncoming(ctx context.Context, target, requester uuid.UUID) error {
	if err := u.checkLock(); err != nil {
		return err
	}
	u.record(target).PendingIncoming.Remove(requester)
	return nil
}

func (u *mockUnit) Record(ctx context.Context, user uuid.UUID) (models.RelationshipRecord, error) {
	return *u.record(user), nil
}

func (u *mockUnit) quota(user uuid.UUID) models.QuotaRecord {
	q, ok := u.quotas[user]
	if !ok {
		q = models.QuotaRecord{UserID: user, Remaining: u.dailyLimit, DailyLimit: u.dailyLimit, LastReset: u.now()}
		u.quotas[user] = q
	}
	return q
}

func (u *mockUnit) Remaining(ctx context.Context, user uuid.UUID) (int, error) {
	return u.quota(user).Remaining, nil
}

func (u *mockUnit) TryConsume(ctx context.Context, user uuid.UUID) (bool, error) {
	q := u.quota(user)
	if q.Remaining <= 0 {
		return false, nil
	}
	q.Remaining--
	u.quotas[user] = q
	return true, nil
}

func (u *mockUnit) Replenish(ctx context.Context, user uuid.UUID) error {
	q := u.quota(user)
	q.Remaining, q.LastReset = q.DailyLimit, u.now()
	u.quotas[user] = q
	return nil
}

func (u *mockUnit) Quota(ctx context.Context, user uuid.UUID) (models.QuotaRecord, error) {
	return u.quota(user), nil
}

func (u *mockUnit) ReplenishDue(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	for id, q := range u.quotas {
		if !q.LastReset.After(cutoff) {
			q.Remaining, q.LastReset = q.DailyLimit, u.now()
			u.quotas[id] = q
			n++
		}
	}
	return n, nil
}

type MockDirectory struct {
	Identities map[uuid.UUID]models.Identity
}

func (m *MockDirectory) Add(name string, active bool) uuid.UUID {
	if m.Identities == nil {
		m.Identities = make(map[uuid.UUID]models.Identity)
	}
	id := uuid.New()
	m.Identities[id] = models.Identity{ID: id, Name: name, Active: active}
	return id
}

func (m *MockDirectory) Lookup(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	ident, ok := m.Identities[id]
	if !ok {
		return ident, models.NewError(models.KindNotFound, "user %s not found", id)
	}
	return ident, nil
}

type MockNotifier struct {
	mu     sync.Mutex
	Events []models.Event
}

func (m *MockNotifier) Notify(ctx context.Context, ev models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}
