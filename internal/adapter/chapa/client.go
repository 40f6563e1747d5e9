package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InitializeRequest carries the fields the gateway needs to open a
// hosted checkout session.
type InitializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
}

// InitializeResponse is the subset of the gateway reply the platform uses.
type InitializeResponse struct {
	CheckoutURL string
}

// VerifyResponse reports the gateway-side state of a transaction.
type VerifyResponse struct {
	Status    string
	Reference string
	Amount    float64
}

// Gateway encapsulates outbound HTTP calls to the payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, txRef string) (*VerifyResponse, error)
}

// HTTPGateway is the default HTTP implementation.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway constructs the default Gateway.
func NewHTTPGateway(client *http.Client, baseURL, secretKey string) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
	}
}

// Initialize opens a checkout session and returns the hosted payment URL.
func (g *HTTPGateway) Initialize(ctx context.Context, initReq InitializeRequest) (*InitializeResponse, error) {
	payload, err := json.Marshal(initReq)
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	raw, err := g.call(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			CheckoutURL string `json:"checkout_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("initialize rejected: %s", body.Message)
	}
	if body.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("initialize response missing checkout url")
	}
	return &InitializeResponse{CheckoutURL: body.Data.CheckoutURL}, nil
}

// Verify asks the gateway for the authoritative state of a transaction.
func (g *HTTPGateway) Verify(ctx context.Context, txRef string) (*VerifyResponse, error) {
	raw, err := g.call(ctx, http.MethodGet, "/transaction/verify/"+txRef, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Status    string  `json:"status"`
			Reference string  `json:"reference"`
			Amount    float64 `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &VerifyResponse{
		Status:    body.Data.Status,
		Reference: body.Data.Reference,
		Amount:    body.Data.Amount,
	}, nil
}

func (g *HTTPGateway) call(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway call failed: status=%d", resp.StatusCode)
	}
	return raw, nil
}
