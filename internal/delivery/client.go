package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aglago/iselldata-backend/pkg/config"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

const (
	successCode = "0000"

	// unreachableCode marks transport-level failures so the workflow can
	// handle them through the same rejection path as upstream refusals.
	unreachableCode = "-1"

	endpointBalance  = "balance"
	endpointPurchase = "purchase"

	maxResponseBytes = 1 << 20
)

var (
	errBaseURLRequired = errors.New("delivery base url is required")
	errAPIKeyRequired  = errors.New("delivery api key is required")
	errLoggerRequired  = errors.New("delivery logger is required")
)

// purchasePaths maps each routed network to its upstream endpoint. The
// map is the only source of truth: a network missing here is rejected
// before any request is built. Telecel is fulfilled by hand and has no
// entry.
var purchasePaths = map[enums.Network]string{
	enums.NetworkMTN:        "/api/v1/mtn/purchase",
	enums.NetworkAirtelTigo: "/api/v1/airteltigo/purchase",
}

// Client wraps the aggregator's balance and purchase endpoints with
// centralized auth, logging, call recording, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	webhookURL string

	balanceTimeout  time.Duration
	purchaseTimeout time.Duration

	recorder *CallRecorder
	logger   *logger.Logger
}

// NewClient validates the aggregator credentials and builds the adapter.
func NewClient(cfg config.DeliveryConfig, recorder *CallRecorder, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	return &Client{
		httpClient:      &http.Client{},
		baseURL:         baseURL,
		apiKey:          apiKey,
		webhookURL:      strings.TrimSpace(cfg.WebhookURL),
		balanceTimeout:  cfg.BalanceTimeout,
		purchaseTimeout: cfg.PurchaseTimeout,
		recorder:        recorder,
		logger:          logg,
	}, nil
}

// CheckBalance fetches the aggregator wallet balance. Callers must treat
// Available=false or a short balance as a hard stop before purchasing.
func (c *Client) CheckBalance(ctx context.Context) (Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, c.balanceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/balance", nil)
	if err != nil {
		return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building balance request")
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.recorder.record(ctx, callRecord{
			Endpoint: endpointBalance,
			Success:  false,
			Latency:  latency,
		})
		c.logger.Error(ctx, "gateway balance check unreachable", err)
		return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery gateway unreachable")
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "reading balance response")
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.recorder.record(ctx, callRecord{
		Endpoint:     endpointBalance,
		ResponseBody: string(body),
		StatusCode:   resp.StatusCode,
		Success:      ok,
		Latency:      latency,
	})
	if !ok {
		return Balance{}, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("delivery balance check returned status %d", resp.StatusCode))
	}

	var envelope balanceEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding balance response")
	}

	balance := envelope.toBalance()
	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"available": balance.Available,
		"balance":   balance.Amount.String(),
	}), "gateway balance checked")
	return balance, nil
}

// Purchase places one bundle order upstream. The returned DeliveryResult
// reports acceptance; transport failures come back as a rejected result
// with the synthetic unreachable code rather than a bare error, so every
// failure takes the same path through the workflow.
func (c *Client) Purchase(ctx context.Context, input PurchaseInput) (*DeliveryResult, error) {
	path, ok := purchasePaths[input.Network]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedNetwork,
			fmt.Sprintf("network %q has no purchase endpoint", input.Network))
	}

	payload := map[string]any{
		"phone":     input.Phone,
		"volume":    strconv.Itoa(input.VolumeMB),
		"reference": input.Reference,
	}
	if c.webhookURL != "" {
		payload["webhook"] = c.webhookURL
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "encoding purchase request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.purchaseTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building purchase request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	orderID := input.OrderID
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.recorder.record(ctx, callRecord{
			OrderID:     &orderID,
			Network:     input.Network,
			Endpoint:    endpointPurchase,
			RequestBody: string(reqBody),
			Success:     false,
			Latency:     latency,
		})
		c.logger.Error(ctx, "gateway purchase unreachable", err)
		return &DeliveryResult{
			Accepted:   false,
			Code:       unreachableCode,
			RawMessage: err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "reading purchase response")
	}

	var envelope purchaseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.recorder.record(ctx, callRecord{
			OrderID:      &orderID,
			Network:      input.Network,
			Endpoint:     endpointPurchase,
			RequestBody:  string(reqBody),
			ResponseBody: string(body),
			StatusCode:   resp.StatusCode,
			Success:      false,
			Latency:      latency,
		})
		return &DeliveryResult{
			Accepted:   false,
			Code:       unreachableCode,
			RawMessage: "unparseable upstream response",
		}, nil
	}

	result := envelope.toResult()
	c.recorder.record(ctx, callRecord{
		OrderID:      &orderID,
		Network:      input.Network,
		Endpoint:     endpointPurchase,
		RequestBody:  string(reqBody),
		ResponseBody: string(body),
		StatusCode:   resp.StatusCode,
		Success:      result.Accepted,
		Latency:      latency,
	})

	fields := map[string]any{
		"accepted": result.Accepted,
		"code":     result.Code,
	}
	if result.TransactionID != "" {
		fields["transaction_id"] = result.TransactionID
	}
	c.logger.Info(c.logger.WithFields(c.logger.WithNetwork(ctx, string(input.Network)), fields), "gateway purchase response")
	return result, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}
