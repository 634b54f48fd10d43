package delivery

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/pkg/enums"
)

// Balance is the aggregator wallet snapshot used for the admission guard.
type Balance struct {
	Available bool            `json:"available"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// PurchaseInput carries one bundle purchase request to the aggregator.
type PurchaseInput struct {
	OrderID   uuid.UUID
	Network   enums.Network
	Phone     string
	VolumeMB  int
	Reference string
}

// DeliveryResult is the normalized outcome of a purchase call.
type DeliveryResult struct {
	Accepted      bool
	Code          string
	TransactionID string
	PaymentID     *string
	RawMessage    string
}

// purchaseEnvelope covers every response shape the aggregator is known to
// emit. Status is sometimes a boolean and sometimes the string "success",
// and the interesting fields sometimes live under data instead.
type purchaseEnvelope struct {
	Status        json.RawMessage  `json:"status"`
	Code          string           `json:"code"`
	Message       string           `json:"message"`
	TransactionID string           `json:"transaction_id"`
	PaymentID     *string          `json:"payment_id"`
	Data          *purchasePayload `json:"data"`
}

type purchasePayload struct {
	Status        bool    `json:"status"`
	Code          string  `json:"code"`
	Message       string  `json:"message"`
	TransactionID string  `json:"transaction_id"`
	PaymentID     *string `json:"payment_id"`
}

func (e *purchaseEnvelope) statusBool() (bool, bool) {
	var b bool
	if err := json.Unmarshal(e.Status, &b); err != nil {
		return false, false
	}
	return b, true
}

func (e *purchaseEnvelope) statusString() (string, bool) {
	var s string
	if err := json.Unmarshal(e.Status, &s); err != nil {
		return "", false
	}
	return s, true
}

// isSuccess applies the three success shapes the aggregator has been seen
// to return. All three must stay checked; the upstream contract is not
// consistent across networks or API versions.
func (e *purchaseEnvelope) isSuccess() bool {
	if len(e.Status) > 0 {
		if b, ok := e.statusBool(); ok && b && e.Code == successCode {
			return true
		}
		if s, ok := e.statusString(); ok && s == "success" && e.Data != nil && e.Data.Status {
			return true
		}
	}
	if e.Data != nil && e.Data.Status && e.Data.Code == successCode {
		return true
	}
	return false
}

func (e *purchaseEnvelope) toResult() *DeliveryResult {
	res := &DeliveryResult{
		Accepted:      e.isSuccess(),
		Code:          e.Code,
		TransactionID: e.TransactionID,
		PaymentID:     e.PaymentID,
		RawMessage:    e.Message,
	}
	if e.Data != nil {
		if res.Code == "" {
			res.Code = e.Data.Code
		}
		if res.TransactionID == "" {
			res.TransactionID = e.Data.TransactionID
		}
		if res.PaymentID == nil {
			res.PaymentID = e.Data.PaymentID
		}
		if res.RawMessage == "" {
			res.RawMessage = e.Data.Message
		}
	}
	return res
}

// balanceEnvelope tolerates the nested wallet shape the balance endpoint
// returns alongside sales counters we do not use.
type balanceEnvelope struct {
	Status json.RawMessage `json:"status"`
	Data   *balancePayload `json:"data"`

	WalletBalance *decimal.Decimal `json:"wallet_balance"`
	Currency      string           `json:"currency"`
}

type balancePayload struct {
	WalletBalance *decimal.Decimal `json:"wallet_balance"`
	Currency      string           `json:"currency"`
	TodaySales    *decimal.Decimal `json:"today_sales"`
	TotalSales    *decimal.Decimal `json:"total_sales"`
	LastTopUp     *decimal.Decimal `json:"last_top_up"`
}

func (e *balanceEnvelope) toBalance() Balance {
	balance := Balance{Currency: e.Currency}
	if e.WalletBalance != nil {
		balance.Available = true
		balance.Amount = *e.WalletBalance
	}
	if e.Data != nil && e.Data.WalletBalance != nil {
		balance.Available = true
		balance.Amount = *e.Data.WalletBalance
		if e.Data.Currency != "" {
			balance.Currency = e.Data.Currency
		}
	}
	if balance.Currency == "" {
		balance.Currency = "GHS"
	}
	return balance
}
