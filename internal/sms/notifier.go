package sms

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

// Notifier sends the storefront's customer and admin texts. Every send is
// fire-and-log: a provider failure never bubbles into the order workflow.
type Notifier struct {
	sender     Sender
	adminPhone string
	logger     *logger.Logger
}

func NewNotifier(sender Sender, adminPhone string, logg *logger.Logger) *Notifier {
	return &Notifier{sender: sender, adminPhone: adminPhone, logger: logg}
}

// OrderConfirmed tells the customer their bundle is on its way.
func (n *Notifier) OrderConfirmed(ctx context.Context, phone string, gb int, network enums.Network, trackingURL string) {
	msg := fmt.Sprintf(
		"Your %dGB %s bundle order is confirmed and being delivered. Track it at %s",
		gb, networkDisplayName(network), trackingURL,
	)
	n.send(ctx, phone, msg)
}

// OrderFailed tells the customer delivery did not go through.
func (n *Notifier) OrderFailed(ctx context.Context, phone, reference string) {
	msg := fmt.Sprintf(
		"We could not deliver your data bundle order %s. Please contact support and quote this reference.",
		reference,
	)
	n.send(ctx, phone, msg)
}

// AdminManualFulfillment asks the operator to fulfil a Telecel order by hand.
func (n *Notifier) AdminManualFulfillment(ctx context.Context, reference string, network enums.Network, phone string, gb int) {
	msg := fmt.Sprintf(
		"Manual fulfillment needed: order %s, %dGB %s for %s. Paid and waiting.",
		reference, gb, networkDisplayName(network), phone,
	)
	n.send(ctx, n.adminPhone, msg)
}

// AdminLowBalance warns the operator the aggregator wallet is running out.
func (n *Notifier) AdminLowBalance(ctx context.Context, amount decimal.Decimal) {
	msg := fmt.Sprintf("Delivery gateway wallet balance is low: GHS %s. Top up to keep orders flowing.", amount.StringFixed(2))
	n.send(ctx, n.adminPhone, msg)
}

func (n *Notifier) send(ctx context.Context, to, message string) {
	if n == nil || n.sender == nil || to == "" {
		return
	}
	if err := n.sender.Send(ctx, to, message); err != nil && n.logger != nil {
		n.logger.Error(n.logger.WithField(ctx, "sms_to", maskPhone(to)), "sms send failed", err)
	}
}

func networkDisplayName(network enums.Network) string {
	switch network {
	case enums.NetworkMTN:
		return "MTN"
	case enums.NetworkAirtelTigo:
		return "AirtelTigo"
	case enums.NetworkTelecel:
		return "Telecel"
	default:
		return string(network)
	}
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
