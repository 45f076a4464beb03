package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/models"
	"salonflow/services/draft"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSlotUnavailable means the held slot was taken or the draft expired
	// before promotion; the client must restart from slot selection.
	ErrSlotUnavailable = errors.New("slot_unavailable")
	// ErrPromotionInFlight means another promote call for the same draft is
	// currently running; the caller must not issue a duplicate.
	ErrPromotionInFlight = errors.New("promotion already in flight")
)

// Promoter converts a verified draft into a confirmed appointment exactly
// once. Duplicate success signals for an already promoted draft are no-ops
// that return the existing appointment.
type Promoter struct {
	drafts    draft.Store
	repo      appointmentRepo.AppointmentRepository
	guard     Guard
	basePrice float64
	logger    *zap.Logger
}

// NewPromoter wires the promoter. basePrice is the per-service price used
// until a real price catalogue is attached.
func NewPromoter(drafts draft.Store, repo appointmentRepo.AppointmentRepository, guard Guard, basePrice float64, logger *zap.Logger) *Promoter {
	return &Promoter{
		drafts:    drafts,
		repo:      repo,
		guard:     guard,
		basePrice: basePrice,
		logger:    logger,
	}
}

// Promote finalizes the draft into an appointment. Exactly-once is enforced
// in two layers: an existing appointment for the draft short-circuits as a
// no-op, and a promotion lock rejects concurrent calls for the same draft.
func (p *Promoter) Promote(ctx context.Context, draftID string) (*models.Appointment, error) {
	// Duplicate resolution of an already-settled verification: return the
	// appointment that first promotion produced.
	if existing, err := p.repo.GetByDraftID(draftID); err == nil {
		p.logger.Debug("promotion no-op, draft already promoted",
			zap.String("draftId", draftID),
			zap.String("appointmentId", existing.ID))
		return existing, nil
	} else if !errors.Is(err, appointmentRepo.ErrNotFound) {
		return nil, fmt.Errorf("failed to check prior promotion: %w", err)
	}

	acquired, err := p.guard.Acquire(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrPromotionInFlight
	}
	defer func() {
		if err := p.guard.Release(ctx, draftID); err != nil {
			p.logger.Warn("failed to release promotion lock", zap.String("draftId", draftID), zap.Error(err))
		}
	}()

	d, err := p.drafts.Get(ctx, draftID)
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			// The hold expired server-side; the wizard must restart.
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("failed to load draft %s: %w", draftID, err)
	}

	taken, err := p.repo.HasOverlap(d.Selection.MasterID, d.Selection.Start, d.Selection.End)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot availability: %w", err)
	}
	if taken {
		return nil, ErrSlotUnavailable
	}

	appt := &models.Appointment{
		ID:            uuid.New().String(),
		DraftID:       d.DraftID,
		ServiceIDs:    d.Selection.ServiceIDs,
		ServiceTitle:  strings.Join(d.Selection.ServiceIDs, ", "),
		MasterID:      d.Selection.MasterID,
		ClientName:    d.Contact.Name,
		ClientPhone:   d.Contact.Phone,
		ClientEmail:   d.Contact.Email,
		Start:         d.Selection.Start,
		End:           d.Selection.End,
		Date:          d.Selection.Date,
		TotalPrice:    p.basePrice * float64(len(d.Selection.ServiceIDs)),
		PaymentStatus: models.PaymentStatusUnpaid,
		CreatedAt:     time.Now(),
	}

	if err := p.repo.Create(appt); err != nil {
		return nil, fmt.Errorf("failed to persist appointment: %w", err)
	}

	// Consume the draft; the hold is spent.
	if err := p.drafts.Delete(ctx, draftID); err != nil {
		p.logger.Warn("failed to delete promoted draft", zap.String("draftId", draftID), zap.Error(err))
	}

	p.logger.Info("draft promoted",
		zap.String("draftId", draftID),
		zap.String("appointmentId", appt.ID))
	return appt, nil
}
