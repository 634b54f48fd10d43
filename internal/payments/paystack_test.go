package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aglago/iselldata-backend/pkg/config"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

func testPaystackClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	client, err := NewClient(config.PaystackConfig{
		BaseURL:       baseURL,
		SecretKey:     "sk_test_abc",
		VerifyTimeout: 2 * time.Second,
	}, logg)
	require.NoError(t, err)
	return client
}

func TestVerifyOnlySuccessCountsAsPaid(t *testing.T) {
	tests := []struct {
		status string
		paid   bool
	}{
		{status: "success", paid: true},
		{status: "abandoned", paid: false},
		{status: "ongoing", paid: false},
		{status: "failed", paid: false},
	}

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/REF-1", r.URL.Path)
				assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"` + tc.status + `","reference":"REF-1","amount":2200,"currency":"GHS","channel":"mobile_money"}}`))
			}))
			defer srv.Close()

			client := testPaystackClient(t, srv.URL)
			result, err := client.Verify(context.Background(), "REF-1")
			require.NoError(t, err)
			assert.Equal(t, tc.paid, result.Paid)
			assert.Equal(t, "22", result.Amount.String())
		})
	}
}

func TestVerifyMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer srv.Close()

	client := testPaystackClient(t, srv.URL)
	_, err := client.Verify(context.Background(), "MISSING")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyRejectsEmptyReference(t *testing.T) {
	client := testPaystackClient(t, "http://unused.invalid")

	_, err := client.Verify(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestValidateWebhookSignature(t *testing.T) {
	client := testPaystackClient(t, "http://unused.invalid")
	body := []byte(`{"event":"charge.success","data":{"reference":"REF-1","status":"success"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test_abc"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.ValidateWebhookSignature(body, valid))
	assert.False(t, client.ValidateWebhookSignature(body, "deadbeef"))
	assert.False(t, client.ValidateWebhookSignature(body, ""))
	assert.False(t, client.ValidateWebhookSignature([]byte(`{"tampered":true}`), valid))
}

func TestParseWebhookEvent(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"event":"charge.success","data":{"reference":"REF-1","status":"success","amount":2200}}`))
	require.NoError(t, err)
	assert.True(t, event.IsChargeSuccess())

	other, err := ParseWebhookEvent([]byte(`{"event":"transfer.success","data":{"reference":"REF-1","status":"success"}}`))
	require.NoError(t, err)
	assert.False(t, other.IsChargeSuccess())
}
