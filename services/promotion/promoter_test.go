package promotion

import (
	"context"
	"sync"
	"testing"
	"time"

	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/models"
	"salonflow/services/draft"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.Appointment
	byDraft map[string]*models.Appointment
	creates int
}

func newMemRepo() *memRepo {
	return &memRepo{
		byID:    make(map[string]*models.Appointment),
		byDraft: make(map[string]*models.Appointment),
	}
}

func (r *memRepo) Create(appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	r.byID[appt.ID] = appt
	r.byDraft[appt.DraftID] = appt
	return nil
}

func (r *memRepo) GetByID(id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	return nil, appointmentRepo.ErrNotFound
}

func (r *memRepo) GetByDraftID(draftID string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byDraft[draftID]; ok {
		return a, nil
	}
	return nil, appointmentRepo.ErrNotFound
}

func (r *memRepo) HasOverlap(masterID string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.MasterID == masterID && a.Start.Before(end) && a.End.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) UpdatePayment(id, method, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return appointmentRepo.ErrNotFound
	}
	a.PaymentMethod = method
	a.PaymentStatus = status
	return nil
}

type memGuard struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newMemGuard() *memGuard {
	return &memGuard{locks: make(map[string]bool)}
}

func (g *memGuard) Acquire(ctx context.Context, draftID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locks[draftID] {
		return false, nil
	}
	g.locks[draftID] = true
	return true, nil
}

func (g *memGuard) Release(ctx context.Context, draftID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, draftID)
	return nil
}

type memDrafts struct {
	mu     sync.Mutex
	drafts map[string]*models.Draft
}

func newMemDrafts(ds ...*models.Draft) *memDrafts {
	m := &memDrafts{drafts: make(map[string]*models.Draft)}
	for _, d := range ds {
		m.drafts[d.DraftID] = d
	}
	return m
}

func (s *memDrafts) Save(ctx context.Context, d *models.Draft, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.DraftID] = d
	return nil
}

func (s *memDrafts) Get(ctx context.Context, draftID string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drafts[draftID]; ok {
		return d, nil
	}
	return nil, draft.ErrNotFound
}

func (s *memDrafts) Delete(ctx context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, draftID)
	return nil
}

func testDraft(id string) *models.Draft {
	return &models.Draft{
		DraftID: id,
		Selection: models.BookingSelection{
			ServiceIDs: []string{"svc1", "svc2"},
			MasterID:   "m1",
			Start:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			End:        time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
			Date:       "2025-06-01",
		},
		Contact: models.ContactDraft{
			Name:  "Anna",
			Phone: "+491701234567",
			Email: "anna@example.com",
		},
		CreatedAt: time.Now(),
	}
}

func newTestPromoter(drafts draft.Store, repo appointmentRepo.AppointmentRepository) *Promoter {
	return NewPromoter(drafts, repo, newMemGuard(), 35, zap.NewNop())
}

func TestPromote_CreatesAppointmentAndConsumesDraft(t *testing.T) {
	drafts := newMemDrafts(testDraft("d1"))
	repo := newMemRepo()
	p := newTestPromoter(drafts, repo)

	appt, err := p.Promote(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, "d1", appt.DraftID)
	require.Equal(t, "m1", appt.MasterID)
	require.Equal(t, float64(70), appt.TotalPrice) // two services at base price
	require.Equal(t, models.PaymentStatusUnpaid, appt.PaymentStatus)

	_, err = drafts.Get(context.Background(), "d1")
	require.ErrorIs(t, err, draft.ErrNotFound, "promotion must consume the draft")
}

func TestPromote_SecondCallIsNoOp(t *testing.T) {
	drafts := newMemDrafts(testDraft("d1"))
	repo := newMemRepo()
	p := newTestPromoter(drafts, repo)

	first, err := p.Promote(context.Background(), "d1")
	require.NoError(t, err)

	second, err := p.Promote(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "duplicate promotion must return the same appointment")
	require.Equal(t, 1, repo.creates, "only one appointment may ever be created per draft")
}

func TestPromote_ExpiredDraftIsSlotUnavailable(t *testing.T) {
	p := newTestPromoter(newMemDrafts(), newMemRepo())

	_, err := p.Promote(context.Background(), "gone")
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestPromote_TakenSlotIsSlotUnavailable(t *testing.T) {
	d1, d2 := testDraft("d1"), testDraft("d2")
	drafts := newMemDrafts(d1, d2)
	repo := newMemRepo()
	p := newTestPromoter(drafts, repo)

	_, err := p.Promote(context.Background(), "d1")
	require.NoError(t, err)

	// Same master, overlapping range.
	_, err = p.Promote(context.Background(), "d2")
	require.ErrorIs(t, err, ErrSlotUnavailable)
	require.Equal(t, 1, repo.creates)
}

func TestPromote_ConcurrentCallRejectedByGuard(t *testing.T) {
	drafts := newMemDrafts(testDraft("d1"))
	repo := newMemRepo()
	guard := newMemGuard()
	p := NewPromoter(drafts, repo, guard, 35, zap.NewNop())

	ok, err := guard.Acquire(context.Background(), "d1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = p.Promote(context.Background(), "d1")
	require.ErrorIs(t, err, ErrPromotionInFlight)
	require.Zero(t, repo.creates)
}
