package draft

import (
	"context"
	"fmt"
	"time"

	"salonflow/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager creates and holds draft appointments pending verification.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager returns a manager holding drafts for the given TTL.
func NewManager(store Store, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, logger: logger}
}

// CreateDraft validates the selection and contact info and stores a new
// draft. Exactly one store write is issued; nothing is retried on failure.
// A retry is a fresh user submission.
func (m *Manager) CreateDraft(ctx context.Context, sel models.BookingSelection, contact models.ContactDraft, locale string) (string, error) {
	if err := validateSelection(sel); err != nil {
		return "", err
	}
	if err := validateContact(contact, time.Now()); err != nil {
		return "", err
	}

	d := &models.Draft{
		DraftID:   uuid.New().String(),
		Selection: sel,
		Contact:   contact,
		Locale:    locale,
		CreatedAt: time.Now(),
	}

	if err := m.store.Save(ctx, d, m.ttl); err != nil {
		m.logger.Error("failed to create draft", zap.Error(err))
		return "", fmt.Errorf("could not create draft: %w", err)
	}

	m.logger.Info("draft created",
		zap.String("draftId", d.DraftID),
		zap.String("masterId", sel.MasterID),
		zap.Int("services", len(sel.ServiceIDs)))
	return d.DraftID, nil
}

// Get returns a pending draft.
func (m *Manager) Get(ctx context.Context, draftID string) (*models.Draft, error) {
	return m.store.Get(ctx, draftID)
}
