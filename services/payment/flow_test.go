package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu    sync.Mutex
	appts map[string]*models.Appointment
}

func newMemRepo(appts ...*models.Appointment) *memRepo {
	r := &memRepo{appts: make(map[string]*models.Appointment)}
	for _, a := range appts {
		r.appts[a.ID] = a
	}
	return r
}

func (r *memRepo) Create(appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appts[appt.ID] = appt
	return nil
}

func (r *memRepo) GetByID(id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appts[id]; ok {
		return a, nil
	}
	return nil, appointmentRepo.ErrNotFound
}

func (r *memRepo) GetByDraftID(draftID string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.DraftID == draftID {
			return a, nil
		}
	}
	return nil, appointmentRepo.ErrNotFound
}

func (r *memRepo) HasOverlap(masterID string, start, end time.Time) (bool, error) {
	return false, nil
}

func (r *memRepo) UpdatePayment(id, method, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return appointmentRepo.ErrNotFound
	}
	a.PaymentMethod = method
	a.PaymentStatus = status
	return nil
}

type fakeStripe struct {
	mu      sync.Mutex
	calls   int
	err     error
	secrets []string
}

func (s *fakeStripe) CreateIntent(ctx context.Context, amount float64, currency, appointmentID string) (*CardIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	secret := "cs_" + time.Now().Format("150405.000000000")
	s.secrets = append(s.secrets, secret)
	return &CardIntent{IntentID: "pi_1", ClientSecret: secret}, nil
}

type fakePayPal struct {
	calls int
	err   error
}

func (p *fakePayPal) CreateOrder(ctx context.Context, amount float64, currency, appointmentID string) (*PayPalOrder, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &PayPalOrder{OrderID: "ord-1", ApproveURL: "https://paypal.example.com/approve/ord-1"}, nil
}

func testAppointment() *models.Appointment {
	return &models.Appointment{
		ID:           "appt-1",
		DraftID:      "d1",
		ServiceTitle: "Haircut",
		MasterName:   "Olga",
		Start:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		TotalPrice:   70,
		CreatedAt:    time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC),
	}
}

type flowFixture struct {
	flow   *Flow
	repo   *memRepo
	stripe *fakeStripe
	paypal *fakePayPal
}

func newFlowFixture() *flowFixture {
	f := &flowFixture{
		repo:   newMemRepo(testAppointment()),
		stripe: &fakeStripe{},
		paypal: &fakePayPal{},
	}
	f.flow = NewFlow("appt-1", f.repo, f.stripe, f.paypal, 35, "eur", zap.NewNop())
	return f
}

func TestSelectMethod_OnsiteThenConfirm(t *testing.T) {
	f := newFlowFixture()

	intent, err := f.flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)
	require.Equal(t, models.PayOnsite, intent.Method)
	require.Equal(t, StateOnsiteConfirming, f.flow.State())

	require.NoError(t, f.flow.ConfirmOnsite(context.Background()))
	require.Equal(t, StateSucceeded, f.flow.State())

	appt, err := f.repo.GetByID("appt-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusOnsite, appt.PaymentStatus)

	// Confirming again is a no-op.
	require.NoError(t, f.flow.ConfirmOnsite(context.Background()))
}

func TestSelectMethod_StripeChargesStoredTotal(t *testing.T) {
	f := newFlowFixture()

	intent, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	require.Equal(t, StateStripePaying, f.flow.State())
	require.Equal(t, float64(70), intent.Amount)
	require.NotEmpty(t, intent.ClientSecret)
}

func TestSelectMethod_StripeFallsBackToBasePrice(t *testing.T) {
	f := newFlowFixture()
	f.flow.appointmentID = "missing"

	intent, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	require.Equal(t, float64(35), intent.Amount)
}

func TestSelectMethod_SwitchDiscardsClientSecret(t *testing.T) {
	f := newFlowFixture()

	intent, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	require.NotEmpty(t, intent.ClientSecret)

	intent, err = f.flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)
	require.Empty(t, intent.ClientSecret, "switching methods must discard the prepared secret")
	require.Equal(t, StateOnsiteConfirming, f.flow.State())
}

func TestSelectMethod_ReselectingStripeCreatesFreshIntent(t *testing.T) {
	f := newFlowFixture()

	_, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	_, err = f.flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)

	intent, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	require.Equal(t, 2, f.stripe.calls, "returning to stripe must create a new intent, not reuse the old one")
	require.Equal(t, f.stripe.secrets[1], intent.ClientSecret)
}

func TestSelectMethod_GatewayFailureStaysRetryable(t *testing.T) {
	f := newFlowFixture()
	f.stripe.err = errors.New("stripe unavailable")

	_, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.Error(t, err)
	require.Equal(t, StateMethodSelecting, f.flow.State())

	f.stripe.err = nil
	_, err = f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	require.Equal(t, StateStripePaying, f.flow.State())
}

func TestSelectMethod_PayPalReturnsApproveURL(t *testing.T) {
	f := newFlowFixture()

	intent, err := f.flow.SelectMethod(context.Background(), models.PayPayPal)
	require.NoError(t, err)
	require.Equal(t, StatePayPalPaying, f.flow.State())
	require.Equal(t, "https://paypal.example.com/approve/ord-1", intent.ApproveURL)
}

func TestHandleSuccess_SettlesOnce(t *testing.T) {
	f := newFlowFixture()

	_, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)

	require.NoError(t, f.flow.HandleSuccess(context.Background()))
	require.Equal(t, StateSucceeded, f.flow.State())

	appt, err := f.repo.GetByID("appt-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, appt.PaymentStatus)
	require.Equal(t, models.PayStripe, appt.PaymentMethod)

	// Duplicate provider signals are absorbed.
	require.NoError(t, f.flow.HandleSuccess(context.Background()))

	// A settled flow refuses further method switches.
	_, err = f.flow.SelectMethod(context.Background(), models.PayOnsite)
	require.ErrorIs(t, err, ErrPaymentSettled)
}

// gateRepo parks the first UpdatePayment call until released so a method
// switch can be interleaved with the settlement write.
type gateRepo struct {
	*memRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gateRepo) UpdatePayment(id, method, status string) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.memRepo.UpdatePayment(id, method, status)
}

func TestHandleSuccess_MethodSwitchDuringRecordIsDiscarded(t *testing.T) {
	repo := &gateRepo{
		memRepo: newMemRepo(testAppointment()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	flow := NewFlow("appt-1", repo, &fakeStripe{}, &fakePayPal{}, 35, "eur", zap.NewNop())

	_, err := flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- flow.HandleSuccess(context.Background()) }()
	<-repo.entered

	// The user switches methods while the provider signal is being recorded.
	intent, err := flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)
	require.Equal(t, models.PayOnsite, intent.Method)

	close(repo.release)
	require.NoError(t, <-done)

	// The stale success must not settle the switched flow, and the flow must
	// stay fully usable afterwards.
	require.Equal(t, StateOnsiteConfirming, flow.State())
	current := flow.Intent()
	require.NotNil(t, current)
	require.Equal(t, models.IntentPending, current.Status)

	require.NoError(t, flow.ConfirmOnsite(context.Background()))
	require.Equal(t, StateSucceeded, flow.State())
}

// gateStripe parks CreateIntent until released, then fails.
type gateStripe struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func (s *gateStripe) CreateIntent(ctx context.Context, amount float64, currency, appointmentID string) (*CardIntent, error) {
	close(s.entered)
	<-s.release
	return nil, s.err
}

func TestSelectMethod_LateGatewayFailureKeepsSwitchedMethod(t *testing.T) {
	stripe := &gateStripe{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		err:     errors.New("stripe unavailable"),
	}
	flow := NewFlow("appt-1", newMemRepo(testAppointment()), stripe, &fakePayPal{}, 35, "eur", zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := flow.SelectMethod(context.Background(), models.PayStripe)
		done <- err
	}()
	<-stripe.entered

	_, err := flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)

	close(stripe.release)
	require.Error(t, <-done)

	// The failed stripe attempt must not knock the flow out of the method
	// the user switched to in the meantime.
	require.Equal(t, StateOnsiteConfirming, flow.State())
}

func TestHandleSuccess_RequiresProviderPayment(t *testing.T) {
	f := newFlowFixture()

	require.ErrorIs(t, f.flow.HandleSuccess(context.Background()), ErrInvalidTransition)

	_, err := f.flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)
	require.ErrorIs(t, f.flow.HandleSuccess(context.Background()), ErrInvalidTransition)
}

func TestConfirmOnsite_RejectedOutsideOnsite(t *testing.T) {
	f := newFlowFixture()

	_, err := f.flow.SelectMethod(context.Background(), models.PayStripe)
	require.NoError(t, err)
	require.ErrorIs(t, f.flow.ConfirmOnsite(context.Background()), ErrInvalidTransition)
}

func TestCalendarICS_OnlyAfterSettlement(t *testing.T) {
	f := newFlowFixture()

	_, err := f.flow.CalendarICS(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.flow.SelectMethod(context.Background(), models.PayOnsite)
	require.NoError(t, err)
	require.NoError(t, f.flow.ConfirmOnsite(context.Background()))

	ics, err := f.flow.CalendarICS(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR"))
	require.Contains(t, ics, "SUMMARY:Haircut")
	require.Contains(t, ics, "DTSTART:20250601T100000Z")
	require.Contains(t, ics, "UID:appt-1@salonflow")
}

func TestUnknownMethodRejected(t *testing.T) {
	f := newFlowFixture()

	_, err := f.flow.SelectMethod(context.Background(), "barter")
	require.ErrorIs(t, err, ErrUnknownMethod)
}
