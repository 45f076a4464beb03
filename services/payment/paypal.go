package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PayPalOrder is a created order the client approves at ApproveURL.
type PayPalOrder struct {
	OrderID    string
	ApproveURL string
}

// PayPalGateway creates redirect-approved orders.
type PayPalGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, appointmentID string) (*PayPalOrder, error)
}

// PayPalClient is a minimal REST client for the Orders v2 API.
type PayPalClient struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client
}

// NewPayPalClient returns a client against baseURL (the sandbox endpoint when
// empty).
func NewPayPalClient(clientID, secret, baseURL string) *PayPalClient {
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &PayPalClient{
		clientID: clientID,
		secret:   secret,
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *PayPalClient) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build paypal token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach paypal: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token request returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to parse paypal token response: %w", err)
	}
	return body.AccessToken, nil
}

// CreateOrder opens an order and returns the approval redirect.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount float64, currency, appointmentID string) (*PayPalOrder, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": appointmentID,
			"amount": map[string]string{
				"currency_code": strings.ToUpper(currency),
				"value":         fmt.Sprintf("%.2f", amount),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal paypal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build paypal order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach paypal: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paypal order request returned status %d", resp.StatusCode)
	}

	var body struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse paypal order response: %w", err)
	}

	order := &PayPalOrder{OrderID: body.ID}
	for _, l := range body.Links {
		if l.Rel == "approve" {
			order.ApproveURL = l.Href
		}
	}
	if order.ApproveURL == "" {
		return nil, fmt.Errorf("paypal order %s has no approval link", body.ID)
	}
	return order, nil
}
