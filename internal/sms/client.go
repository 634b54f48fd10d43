package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aglago/iselldata-backend/pkg/config"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("sms base url is required")
	errAPIKeyRequired  = errors.New("sms api key is required")
	errLoggerRequired  = errors.New("sms logger is required")
)

// Sender delivers one text message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// Client is the HTTP SMS provider adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	senderID    string
	sendTimeout time.Duration
	logger      *logger.Logger
}

// NewClient validates the SMS provider credentials and builds the sender.
func NewClient(cfg config.SMSConfig, logg *logger.Logger) (*Client, error) {
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
		httpClient:  &http.Client{},
		baseURL:     baseURL,
		apiKey:      apiKey,
		senderID:    cfg.SenderID,
		sendTimeout: cfg.SendTimeout,
		logger:      logg,
	}, nil
}

func (c *Client) Send(ctx context.Context, to, message string) error {
	payload := map[string]string{
		"to":      to,
		"message": message,
	}
	if c.senderID != "" {
		payload["sender"] = c.senderID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "encoding sms request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sms/send", bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sms provider unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("sms provider returned status %d", resp.StatusCode))
	}
	return nil
}
