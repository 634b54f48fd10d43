package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/pkg/config"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

// StatusSuccess is the only Paystack transaction status that counts as paid.
const StatusSuccess = "success"

const maxResponseBytes = 1 << 20

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// VerifyResult is the normalized outcome of a transaction verify call.
type VerifyResult struct {
	Paid      bool
	Status    string
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Channel   string
	PaidAt    *time.Time
}

// WebhookEvent is the subset of a Paystack webhook payload the workflow uses.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
}

// IsChargeSuccess reports whether the event confirms a completed payment.
func (e WebhookEvent) IsChargeSuccess() bool {
	return e.Event == "charge.success" && e.Data.Status == StatusSuccess
}

// Client wraps the Paystack transaction API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	signingSecret string
	verifyTimeout time.Duration
	logger        *logger.Logger
}

// NewClient validates the Paystack credentials and builds the client.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	return &Client{
		httpClient:    &http.Client{},
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		secretKey:     secretKey,
		signingSecret: cfg.SigningSecret(),
		verifyTimeout: cfg.VerifyTimeout,
		logger:        logg,
	}, nil
}

type verifyEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string     `json:"status"`
		Reference string     `json:"reference"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		Channel   string     `json:"channel"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

// Verify fetches a transaction by reference. Paid is true only when the
// transaction status is exactly "success"; every other status, including
// "abandoned" and "ongoing", leaves the order unpaid.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	defer cancel()

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "paystack verify unreachable", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack unreachable")
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "reading verify response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack verify returned status %d", resp.StatusCode))
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding verify response")
	}
	if !envelope.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack verify rejected: "+envelope.Message)
	}

	result := &VerifyResult{
		Paid:      envelope.Data.Status == StatusSuccess,
		Status:    envelope.Data.Status,
		Reference: envelope.Data.Reference,
		Amount:    decimal.NewFromInt(envelope.Data.Amount).Shift(-2),
		Currency:  envelope.Data.Currency,
		Channel:   envelope.Data.Channel,
		PaidAt:    envelope.Data.PaidAt,
	}

	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"reference": result.Reference,
		"status":    result.Status,
		"paid":      result.Paid,
	}), "paystack transaction verified")
	return result, nil
}

// ValidateWebhookSignature checks the x-paystack-signature header against
// an HMAC-SHA512 of the raw request body.
func (c *Client) ValidateWebhookSignature(body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.signingSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// ParseWebhookEvent decodes a verified webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook payload")
	}
	return &event, nil
}
