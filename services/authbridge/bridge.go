package authbridge

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrWindowBlocked is returned when a new auth window slot cannot be
// created. Callers must surface this to the user and abort the channel;
// falling back to polling alone is not allowed.
var ErrWindowBlocked = errors.New("auth window blocked")

// Completion mirrors the booking-complete message posted back by the
// detached auth window.
type Completion struct {
	AppointmentID string
}

// Handle represents one open auth window. Close releases it on any abort
// path and is safe to call multiple times.
type Handle struct {
	bridge    *Bridge
	requestID string
	authURL   string
	done      chan Completion
	closeOnce sync.Once
}

// Done delivers at most one completion message for this window.
func (h *Handle) Done() <-chan Completion {
	return h.done
}

// RequestID returns the verification request this window is bound to, or ""
// before Bind.
func (h *Handle) RequestID() string {
	h.bridge.mu.Lock()
	defer h.bridge.mu.Unlock()
	return h.requestID
}

// AuthURL returns the URL the window was navigated to, or "" before Navigate.
func (h *Handle) AuthURL() string {
	h.bridge.mu.Lock()
	defer h.bridge.mu.Unlock()
	return h.authURL
}

// Close tears the window down and deregisters its listener. Idempotent.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		b := h.bridge
		b.mu.Lock()
		if h.requestID != "" {
			delete(b.pending, h.requestID)
		}
		b.open--
		b.mu.Unlock()
	})
}

// Bridge manages detached auth windows and routes their completion messages
// back to whoever opened them. Completion authenticity is guaranteed by the
// signed state token carried through the OAuth round trip (see state.go),
// the server-side equivalent of a same-origin check.
type Bridge struct {
	mu         sync.Mutex
	pending    map[string]*Handle
	open       int
	maxWindows int
	closed     bool
	secret     []byte
	logger     *zap.Logger
}

// New returns a bridge signing state tokens with the given secret.
func New(secret string, logger *zap.Logger) *Bridge {
	return &Bridge{
		pending:    make(map[string]*Handle),
		maxWindows: 64,
		secret:     []byte(secret),
		logger:     logger,
	}
}

// Open reserves a window slot before any network round trip is made, so a
// refused window aborts the channel without an auth-init call. Returns
// ErrWindowBlocked when the bridge is shut down or saturated.
func (b *Bridge) Open() (*Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.open >= b.maxWindows {
		return nil, ErrWindowBlocked
	}
	b.open++
	return &Handle{
		bridge: b,
		done:   make(chan Completion, 1),
	}, nil
}

// Bind registers the window under its verification request so Complete can
// route the booking-complete message to it.
func (b *Bridge) Bind(h *Handle, requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h.requestID = requestID
	b.pending[requestID] = h
}

// Navigate records the auth URL the window is redirected to.
func (b *Bridge) Navigate(h *Handle, authURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h.authURL = authURL
}

// Complete delivers the booking-complete message to the window bound to
// requestID. Only the first delivery wins; later calls for the same request
// are discarded. Returns false when no window is listening.
func (b *Bridge) Complete(requestID, appointmentID string) bool {
	b.mu.Lock()
	h, ok := b.pending[requestID]
	if ok {
		delete(b.pending, requestID)
	}
	b.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case h.done <- Completion{AppointmentID: appointmentID}:
		return true
	default:
		// Listener already settled; discard.
		b.logger.Debug("discarded duplicate completion", zap.String("requestId", requestID))
		return false
	}
}

// Shutdown closes all pending windows; subsequent Open calls report
// ErrWindowBlocked.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	pending := make([]*Handle, 0, len(b.pending))
	for _, h := range b.pending {
		pending = append(pending, h)
	}
	b.closed = true
	b.mu.Unlock()

	for _, h := range pending {
		h.Close()
	}
}
