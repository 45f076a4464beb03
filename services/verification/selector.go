package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"salonflow/models"
	"salonflow/services/authbridge"
	"salonflow/services/notification"
	"salonflow/services/polling"

	"go.uber.org/zap"
)

// Selector states.
type State string

const (
	StateIdle            State = "idle"
	StateChannelSelected State = "channel_selected"
	StateInProgress      State = "in_progress"
	StateVerified        State = "verified"
	StateFailed          State = "failed"
	StateAborted         State = "aborted"
)

var (
	// ErrUnknownChannel is returned for a channel outside the four offered.
	ErrUnknownChannel = errors.New("unknown verification channel")
	// ErrAlreadyVerified is returned when a verification is started on a
	// draft that already settled.
	ErrAlreadyVerified = errors.New("draft already verified")
)

// Promoter converts a verified draft into a confirmed appointment.
type Promoter interface {
	Promote(ctx context.Context, draftID string) (*models.Appointment, error)
}

// Config tunes the selector.
type Config struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	TelegramBot   string
	PublicBaseURL string
}

// StartResult is what the UI needs to continue the chosen channel.
type StartResult struct {
	Channel     string              `json:"channel"`
	AuthURL     string              `json:"authUrl,omitempty"`
	RequestID   string              `json:"requestId,omitempty"`
	HandoffURL  string              `json:"handoffUrl,omitempty"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

// session owns the live channel's resources: the repeating poll timer, the
// auth window handle and the run context. teardown releases all of them and
// is safe on every exit path, including repeated calls.
type session struct {
	poller  *polling.Poller
	handle  *authbridge.Handle
	cancel  context.CancelFunc
	settled int32
}

// settle claims the single-assignment result cell; only the first caller
// wins, everyone else discards their outcome.
func (s *session) settle() bool {
	return atomic.CompareAndSwapInt32(&s.settled, 0, 1)
}

func (s *session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	if s.handle != nil {
		s.handle.Close()
	}
}

// Selector drives exactly one verification channel at a time for one draft.
// Selecting a new channel forcibly aborts the channel currently in progress
// before the new one starts.
type Selector struct {
	draft    *models.Draft
	bridge   *authbridge.Bridge
	store    RequestStore
	promoter Promoter
	auth     AuthInitiator
	notifier notification.Notifier
	cfg      Config
	logger   *zap.Logger

	// OnVerified and OnFailed are invoked once per settled verification.
	OnVerified func(appointmentID string)
	OnFailed   func(reason string)

	// startMu serializes StartVerification end to end; without it two
	// overlapping starts could each claim the previous session and leave an
	// orphaned poller running until its deadline.
	startMu sync.Mutex

	mu      sync.Mutex
	state   State
	channel string
	lastErr string
	active  *session
}

// NewSelector returns an idle selector for the given draft.
func NewSelector(d *models.Draft, bridge *authbridge.Bridge, store RequestStore, promoter Promoter, auth AuthInitiator, notifier notification.Notifier, cfg Config, logger *zap.Logger) *Selector {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Minute
	}
	return &Selector{
		draft:    d,
		bridge:   bridge,
		store:    store,
		promoter: promoter,
		auth:     auth,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current selector state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Channel returns the currently selected channel, if any.
func (s *Selector) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// LastError returns the user-visible message of the last failure.
func (s *Selector) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Draft returns the draft this selector verifies.
func (s *Selector) Draft() *models.Draft {
	return s.draft
}

// StartVerification selects and starts a channel. Concurrent starts are
// serialized, and any channel already in progress is fully torn down before
// the new one begins, so at most one timer, window and listener ever exist.
func (s *Selector) StartVerification(ctx context.Context, channel string) (*StartResult, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	if s.state == StateVerified {
		s.mu.Unlock()
		return nil, ErrAlreadyVerified
	}
	prev := s.active
	s.active = nil
	s.state = StateChannelSelected
	s.channel = channel
	s.lastErr = ""
	s.mu.Unlock()

	if prev != nil {
		prev.settle() // late results of the abandoned channel are discarded
		prev.teardown()
	}

	switch channel {
	case models.ChannelGoogle:
		return s.startGoogle(ctx)
	case models.ChannelTelegram:
		return s.startTelegram()
	case models.ChannelSMS:
		return s.startSMS(ctx)
	case models.ChannelManual:
		return s.startManual(ctx)
	default:
		return nil, ErrUnknownChannel
	}
}

// Cancel aborts the channel in progress and releases its resources.
func (s *Selector) Cancel() {
	s.mu.Lock()
	sess := s.active
	s.active = nil
	if s.state == StateInProgress {
		s.state = StateAborted
	}
	s.mu.Unlock()

	if sess != nil {
		sess.settle()
		sess.teardown()
	}
}

// --- Google channel ---

func (s *Selector) startGoogle(ctx context.Context) (*StartResult, error) {
	// Reserve the window before any network round trip: a blocked window
	// aborts the channel without an auth-init call.
	handle, err := s.bridge.Open()
	if err != nil {
		s.setChannelError("popup window was blocked")
		return nil, err
	}

	init, err := s.auth.Init(ctx, s.draft)
	if err != nil {
		handle.Close()
		s.setChannelError(err.Error())
		return nil, err
	}
	s.bridge.Bind(handle, init.RequestID)
	s.bridge.Navigate(handle, init.AuthURL)

	runCtx, cancel := context.WithCancel(context.Background())
	sess := &session{poller: polling.New(), handle: handle, cancel: cancel}

	out, err := sess.poller.Start(runCtx, s.statusCheck(init.RequestID), s.cfg.PollInterval)
	if err != nil {
		sess.teardown()
		s.setChannelError(err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.active = sess
	s.state = StateInProgress
	s.mu.Unlock()

	go s.awaitGoogle(runCtx, sess, out)

	s.logger.Info("google verification started",
		zap.String("draftId", s.draft.DraftID),
		zap.String("requestId", init.RequestID))
	return &StartResult{Channel: models.ChannelGoogle, AuthURL: init.AuthURL, RequestID: init.RequestID}, nil
}

// statusCheck probes the verification request. Store errors are treated the
// same as a backend-reported failure.
func (s *Selector) statusCheck(requestID string) polling.CheckFunc {
	return func(ctx context.Context) polling.Result {
		req, err := s.store.Get(ctx, requestID)
		if err != nil {
			if errors.Is(err, ErrRequestNotFound) {
				return polling.Failed(errors.New("expired"))
			}
			return polling.Failed(err)
		}
		switch req.Status {
		case models.VerificationVerified:
			return polling.Done(req.AppointmentID)
		case models.VerificationFailed:
			reason := req.Error
			if reason == "" {
				reason = "verification failed"
			}
			return polling.Failed(errors.New(reason))
		default:
			return polling.Pending()
		}
	}
}

// awaitGoogle races the poll against the window's completion message. The
// first settler wins; the loser's effects are torn down exactly once.
func (s *Selector) awaitGoogle(ctx context.Context, sess *session, out <-chan polling.Outcome) {
	timeout := time.NewTimer(s.cfg.PollTimeout)
	defer timeout.Stop()
	defer sess.teardown()

	select {
	case c := <-sess.handle.Done():
		s.resolveVerified(sess, c.AppointmentID)
	case o := <-out:
		if o.Err != nil {
			s.resolveFailed(sess, o.Err.Error())
		} else {
			s.resolveVerified(sess, o.Payload)
		}
	case <-timeout.C:
		s.resolveFailed(sess, "verification timed out")
	case <-ctx.Done():
		// Aborted by cancel or channel switch; state was set by the aborter.
	}
}

// --- Telegram / SMS handoff channels ---

func (s *Selector) startTelegram() (*StartResult, error) {
	link := notification.TelegramDeepLink(s.cfg.TelegramBot, s.draft.DraftID)

	s.mu.Lock()
	s.state = StateInProgress
	s.mu.Unlock()

	s.logger.Info("telegram handoff started", zap.String("draftId", s.draft.DraftID))
	return &StartResult{Channel: models.ChannelTelegram, HandoffURL: link}, nil
}

func (s *Selector) startSMS(ctx context.Context) (*StartResult, error) {
	confirmURL := fmt.Sprintf("%s/booking/confirm?draft=%s", s.cfg.PublicBaseURL, s.draft.DraftID)
	message := fmt.Sprintf("Confirm your salon appointment: %s", confirmURL)

	if err := s.notifier.SendSMS(ctx, s.draft.Contact.Phone, message); err != nil {
		s.setChannelError(err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.state = StateInProgress
	s.mu.Unlock()

	s.logger.Info("sms handoff started", zap.String("draftId", s.draft.DraftID))
	return &StartResult{Channel: models.ChannelSMS, HandoffURL: confirmURL}, nil
}

// CompleteHandoff settles a telegram/sms verification once the out-of-band
// flow promoted the draft. Signals for a selector that is not waiting on a
// handoff are discarded.
func (s *Selector) CompleteHandoff(appointmentID string) {
	s.mu.Lock()
	waiting := s.state == StateInProgress &&
		(s.channel == models.ChannelTelegram || s.channel == models.ChannelSMS)
	if !waiting {
		s.mu.Unlock()
		return
	}
	s.state = StateVerified
	cb := s.OnVerified
	s.mu.Unlock()

	s.logger.Info("handoff verification settled",
		zap.String("draftId", s.draft.DraftID),
		zap.String("appointmentId", appointmentID))
	if cb != nil {
		cb(appointmentID)
	}
}

// --- Manual channel ---

func (s *Selector) startManual(ctx context.Context) (*StartResult, error) {
	s.mu.Lock()
	s.state = StateInProgress
	s.mu.Unlock()

	appt, err := s.promoter.Promote(ctx, s.draft.DraftID)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.lastErr = err.Error()
		cb := s.OnFailed
		s.mu.Unlock()
		if cb != nil {
			cb(err.Error())
		}
		return nil, err
	}

	s.mu.Lock()
	s.state = StateVerified
	cb := s.OnVerified
	s.mu.Unlock()

	if cb != nil {
		cb(appt.ID)
	}
	return &StartResult{Channel: models.ChannelManual, Appointment: appt}, nil
}

// --- settlement ---

func (s *Selector) resolveVerified(sess *session, appointmentID string) {
	if !sess.settle() {
		return
	}

	// Some backends mark the request verified without carrying the final id;
	// promote here exactly once in that case. A poll result that already
	// carries the appointment id skips promotion entirely.
	if appointmentID == "" {
		appt, err := s.promoter.Promote(context.Background(), s.draft.DraftID)
		if err != nil {
			s.finishFailed(sess, err.Error())
			return
		}
		appointmentID = appt.ID
	}

	s.mu.Lock()
	if s.active != sess {
		s.mu.Unlock()
		return // a newer channel took over while we were resolving
	}
	s.active = nil
	s.state = StateVerified
	cb := s.OnVerified
	s.mu.Unlock()

	s.logger.Info("verification settled",
		zap.String("draftId", s.draft.DraftID),
		zap.String("appointmentId", appointmentID))
	if cb != nil {
		cb(appointmentID)
	}
}

func (s *Selector) resolveFailed(sess *session, reason string) {
	if !sess.settle() {
		return
	}
	s.finishFailed(sess, reason)
}

func (s *Selector) finishFailed(sess *session, reason string) {
	s.mu.Lock()
	if s.active != sess {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.state = StateFailed
	s.lastErr = reason
	cb := s.OnFailed
	s.mu.Unlock()

	s.logger.Warn("verification failed",
		zap.String("draftId", s.draft.DraftID),
		zap.String("reason", reason))
	if cb != nil {
		cb(reason)
	}
}

// setChannelError surfaces a setup failure and returns the selector to
// channel_selected so the channel stays selectable.
func (s *Selector) setChannelError(reason string) {
	s.mu.Lock()
	s.state = StateChannelSelected
	s.lastErr = reason
	cb := s.OnFailed
	s.mu.Unlock()
	if cb != nil {
		cb(reason)
	}
}
