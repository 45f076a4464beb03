package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flow states.
type FlowState string

const (
	StateMethodSelecting  FlowState = "method_selecting"
	StateOnsiteConfirming FlowState = "onsite_confirming"
	StateStripePreparing  FlowState = "stripe_preparing"
	StateStripePaying     FlowState = "stripe_paying"
	StatePayPalPaying     FlowState = "paypal_paying"
	StateSucceeded        FlowState = "succeeded"
)

var (
	// ErrPaymentSettled is returned when a settled flow is driven further.
	ErrPaymentSettled = errors.New("payment already settled")
	// ErrInvalidTransition is returned for an operation that does not apply
	// to the flow's current state.
	ErrInvalidTransition = errors.New("operation not valid in current payment state")
	// ErrUnknownMethod is returned for a method outside the three offered.
	ErrUnknownMethod = errors.New("unknown payment method")
)

// Flow drives payment confirmation for one appointment. Switching methods
// discards any previously prepared intent, secrets included, so stale
// client secrets can never complete a payment for an abandoned method.
type Flow struct {
	appointmentID string
	repo          appointmentRepo.AppointmentRepository
	stripe        StripeGateway
	paypal        PayPalGateway
	basePrice     float64
	currency      string
	logger        *zap.Logger

	mu     sync.Mutex
	state  FlowState
	intent *models.PaymentIntent
}

// NewFlow returns a flow in method selection for the given appointment.
func NewFlow(appointmentID string, repo appointmentRepo.AppointmentRepository, stripe StripeGateway, paypal PayPalGateway, basePrice float64, currency string, logger *zap.Logger) *Flow {
	if currency == "" {
		currency = "eur"
	}
	return &Flow{
		appointmentID: appointmentID,
		repo:          repo,
		stripe:        stripe,
		paypal:        paypal,
		basePrice:     basePrice,
		currency:      currency,
		logger:        logger,
		state:         StateMethodSelecting,
	}
}

// State returns the flow's current state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Intent returns a copy of the current payment intent, or nil.
func (f *Flow) Intent() *models.PaymentIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.intent == nil {
		return nil
	}
	cp := *f.intent
	return &cp
}

// SelectMethod chooses or switches the payment method. Any intent prepared
// for the previous method is discarded before the new one is created, and a
// failed gateway call leaves the flow back in method selection so the choice
// can be retried.
func (f *Flow) SelectMethod(ctx context.Context, method string) (*models.PaymentIntent, error) {
	f.mu.Lock()
	if f.state == StateSucceeded {
		f.mu.Unlock()
		return nil, ErrPaymentSettled
	}
	f.intent = nil
	f.state = StateMethodSelecting
	f.mu.Unlock()

	switch method {
	case models.PayOnsite:
		return f.selectOnsite()
	case models.PayStripe:
		return f.selectStripe(ctx)
	case models.PayPayPal:
		return f.selectPayPal(ctx)
	default:
		return nil, ErrUnknownMethod
	}
}

func (f *Flow) selectOnsite() (*models.PaymentIntent, error) {
	intent := f.newIntent(models.PayOnsite, f.amountFor(context.Background()))

	f.mu.Lock()
	f.intent = intent
	f.state = StateOnsiteConfirming
	f.mu.Unlock()

	return f.Intent(), nil
}

func (f *Flow) selectStripe(ctx context.Context) (*models.PaymentIntent, error) {
	f.mu.Lock()
	f.state = StateStripePreparing
	f.mu.Unlock()

	amount := f.amountFor(ctx)
	card, err := f.stripe.CreateIntent(ctx, amount, f.currency, f.appointmentID)
	if err != nil {
		f.mu.Lock()
		if f.state == StateStripePreparing {
			f.state = StateMethodSelecting
		}
		f.mu.Unlock()
		return nil, fmt.Errorf("failed to prepare card payment: %w", err)
	}

	intent := f.newIntent(models.PayStripe, amount)
	intent.IntentID = card.IntentID
	intent.ClientSecret = card.ClientSecret

	f.mu.Lock()
	if f.state != StateStripePreparing {
		// Method switched away while the intent was being created.
		f.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	f.intent = intent
	f.state = StateStripePaying
	f.mu.Unlock()

	f.logger.Info("stripe intent prepared",
		zap.String("appointmentId", f.appointmentID),
		zap.Float64("amount", amount))
	return f.Intent(), nil
}

func (f *Flow) selectPayPal(ctx context.Context) (*models.PaymentIntent, error) {
	f.mu.Lock()
	f.state = StatePayPalPaying
	f.mu.Unlock()

	amount := f.amountFor(ctx)
	order, err := f.paypal.CreateOrder(ctx, amount, f.currency, f.appointmentID)
	if err != nil {
		f.mu.Lock()
		if f.state == StatePayPalPaying {
			f.state = StateMethodSelecting
		}
		f.mu.Unlock()
		return nil, fmt.Errorf("failed to create paypal order: %w", err)
	}

	intent := f.newIntent(models.PayPayPal, amount)
	intent.IntentID = order.OrderID
	intent.ApproveURL = order.ApproveURL

	f.mu.Lock()
	if f.state != StatePayPalPaying {
		f.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	f.intent = intent
	f.mu.Unlock()

	f.logger.Info("paypal order created",
		zap.String("appointmentId", f.appointmentID),
		zap.String("orderId", order.OrderID))
	return f.Intent(), nil
}

// ConfirmOnsite settles the flow with payment due at the salon. Idempotent:
// confirming an already onsite-settled flow is a no-op.
func (f *Flow) ConfirmOnsite(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSucceeded {
		settled := f.intent != nil && f.intent.Method == models.PayOnsite
		f.mu.Unlock()
		if settled {
			return nil
		}
		return ErrPaymentSettled
	}
	if f.state != StateOnsiteConfirming {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.mu.Unlock()

	if err := f.repo.UpdatePayment(f.appointmentID, models.PayOnsite, models.PaymentStatusOnsite); err != nil {
		return fmt.Errorf("failed to record onsite payment: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// The method may have been switched while the confirmation was being
	// recorded; a confirm for an abandoned intent is discarded.
	if f.state != StateOnsiteConfirming || f.intent == nil || f.intent.Method != models.PayOnsite {
		return nil
	}
	f.state = StateSucceeded
	f.intent.Status = models.IntentConfirmed

	f.logger.Info("onsite payment confirmed", zap.String("appointmentId", f.appointmentID))
	return nil
}

// HandleSuccess settles a stripe or paypal payment after the provider reports
// completion. The flow is terminal afterwards; duplicate success signals for
// a settled flow are no-ops.
func (f *Flow) HandleSuccess(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSucceeded {
		f.mu.Unlock()
		return nil
	}
	if f.state != StateStripePaying && f.state != StatePayPalPaying {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	method := f.intent.Method
	f.mu.Unlock()

	if err := f.repo.UpdatePayment(f.appointmentID, method, models.PaymentStatusPaid); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// The method may have been switched while the provider signal was being
	// recorded; a success for an abandoned intent is discarded.
	if f.intent == nil || f.intent.Method != method ||
		(f.state != StateStripePaying && f.state != StatePayPalPaying) {
		return nil
	}
	f.state = StateSucceeded
	f.intent.Status = models.IntentSucceeded

	f.logger.Info("payment settled",
		zap.String("appointmentId", f.appointmentID),
		zap.String("method", method))
	return nil
}

// CalendarICS renders the appointment as an iCalendar event. Only available
// once the payment settled.
func (f *Flow) CalendarICS(ctx context.Context) (string, error) {
	if f.State() != StateSucceeded {
		return "", ErrInvalidTransition
	}
	appt, err := f.repo.GetByID(f.appointmentID)
	if err != nil {
		return "", fmt.Errorf("failed to load appointment for calendar export: %w", err)
	}
	return BuildICS(appt), nil
}

func (f *Flow) newIntent(method string, amount float64) *models.PaymentIntent {
	return &models.PaymentIntent{
		IntentID:      uuid.New().String(),
		AppointmentID: f.appointmentID,
		Method:        method,
		Amount:        amount,
		Currency:      f.currency,
		Status:        models.IntentPending,
		CreatedAt:     time.Now(),
	}
}

// amountFor charges the appointment's stored total, falling back to the base
// price when the record cannot be loaded.
func (f *Flow) amountFor(ctx context.Context) float64 {
	appt, err := f.repo.GetByID(f.appointmentID)
	if err != nil || appt.TotalPrice <= 0 {
		return f.basePrice
	}
	return appt.TotalPrice
}

// Registry tracks the live payment flow per appointment.
type Registry struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Flow)}
}

// Get returns the flow for an appointment, or nil.
func (r *Registry) Get(appointmentID string) *Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flows[appointmentID]
}

// GetOrCreate returns the existing flow for the appointment or registers one
// built by create.
func (r *Registry) GetOrCreate(appointmentID string, create func() *Flow) *Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flows[appointmentID]; ok {
		return f
	}
	f := create()
	r.flows[appointmentID] = f
	return f
}

// Remove forgets the flow for an appointment.
func (r *Registry) Remove(appointmentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, appointmentID)
}
