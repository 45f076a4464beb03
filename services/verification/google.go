package verification

import (
	"context"
	"fmt"
	"time"

	"salonflow/models"
	"salonflow/services/authbridge"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AuthInit is the result of starting a Google verification round trip.
type AuthInit struct {
	AuthURL   string
	RequestID string
}

// AuthInitiator begins a Google verification round trip: it registers a
// verification request and returns the URL the detached window navigates to.
type AuthInitiator interface {
	Init(ctx context.Context, d *models.Draft) (*AuthInit, error)
}

// GoogleAuthInitiator builds consent URLs against Google's OAuth endpoint
// and records the pending request.
type GoogleAuthInitiator struct {
	oauth      *oauth2.Config
	store      RequestStore
	bridge     *authbridge.Bridge
	requestTTL time.Duration
}

// NewGoogleAuthInitiator wires the initiator. redirectURL must point at the
// server's callback route.
func NewGoogleAuthInitiator(clientID, clientSecret, redirectURL string, store RequestStore, bridge *authbridge.Bridge, requestTTL time.Duration) *GoogleAuthInitiator {
	return &GoogleAuthInitiator{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		store:      store,
		bridge:     bridge,
		requestTTL: requestTTL,
	}
}

// Init registers a pending verification request and returns the consent URL
// carrying a signed state token bound to it.
func (g *GoogleAuthInitiator) Init(ctx context.Context, d *models.Draft) (*AuthInit, error) {
	if g.oauth.ClientID == "" {
		return nil, fmt.Errorf("google verification is not configured")
	}

	req := &models.VerificationRequest{
		RequestID: uuid.New().String(),
		DraftID:   d.DraftID,
		Channel:   models.ChannelGoogle,
		Status:    models.VerificationPending,
		CreatedAt: time.Now(),
	}
	if err := g.store.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to register verification request: %w", err)
	}

	state, err := g.bridge.StateToken(req.RequestID, d.DraftID, g.requestTTL)
	if err != nil {
		return nil, err
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if d.Locale != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hl", d.Locale))
	}
	authURL := g.oauth.AuthCodeURL(state, opts...)

	return &AuthInit{AuthURL: authURL, RequestID: req.RequestID}, nil
}

// Exchange swaps the callback code for a token; the presence of a verified
// Google identity is what promotes the draft.
func (g *GoogleAuthInitiator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}
