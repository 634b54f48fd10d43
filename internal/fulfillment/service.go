package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/internal/delivery"
	"github.com/aglago/iselldata-backend/internal/orders"
	pkgdb "github.com/aglago/iselldata-backend/pkg/db"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

const orderLeaseTTL = 60 * time.Second

var (
	errOrdersRequired   = errors.New("fulfillment orders repository is required")
	errGatewayRequired  = errors.New("fulfillment delivery gateway is required")
	errPaymentsRequired = errors.New("fulfillment payment verifier is required")
	errNotifierRequired = errors.New("fulfillment notifier is required")
	errPricerRequired   = errors.New("fulfillment pricer is required")
	errLocksRequired    = errors.New("fulfillment order locker is required")
	errLoggerRequired   = errors.New("fulfillment logger is required")
)

// Service runs the order-to-delivery workflow. Three entry points share
// one guard sequence; idempotency rests on the upstream transaction id
// being set at most once, backed by the unique index and the per-order
// lease.
type Service struct {
	orders      orders.Repository
	gateway     Gateway
	payments    PaymentVerifier
	notifier    Notifier
	pricer      Pricer
	locks       OrderLocker
	trackingURL func(trackingID string) string
	logger      *logger.Logger
}

type ServiceParams struct {
	Orders      orders.Repository
	Gateway     Gateway
	Payments    PaymentVerifier
	Notifier    Notifier
	Pricer      Pricer
	Locks       OrderLocker
	TrackingURL func(trackingID string) string
	Logger      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Orders == nil:
		return nil, errOrdersRequired
	case params.Gateway == nil:
		return nil, errGatewayRequired
	case params.Payments == nil:
		return nil, errPaymentsRequired
	case params.Notifier == nil:
		return nil, errNotifierRequired
	case params.Pricer == nil:
		return nil, errPricerRequired
	case params.Locks == nil:
		return nil, errLocksRequired
	case params.Logger == nil:
		return nil, errLoggerRequired
	}
	trackingURL := params.TrackingURL
	if trackingURL == nil {
		trackingURL = func(trackingID string) string { return trackingID }
	}
	return &Service{
		orders:      params.Orders,
		gateway:     params.Gateway,
		payments:    params.Payments,
		notifier:    params.Notifier,
		pricer:      params.Pricer,
		locks:       params.Locks,
		trackingURL: trackingURL,
		logger:      params.Logger,
	}, nil
}

// VerifyAndFulfill confirms payment with the provider and, when paid,
// runs the fulfillment sequence. Unpaid transactions report their status
// without touching the order.
func (s *Service) VerifyAndFulfill(ctx context.Context, reference string) (*FulfillOutcome, error) {
	ctx = s.logger.WithEntryPoint(s.logger.WithOrderRef(ctx, reference), string(EntryVerify))

	verification, err := s.payments.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verification.Paid {
		order, findErr := s.orders.FindByAnyReference(ctx, reference)
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, findErr
		}
		return &FulfillOutcome{
			Outcome: OutcomePaymentPending,
			Order:   order,
			Message: fmt.Sprintf("payment status is %q", verification.Status),
		}, nil
	}

	return s.Fulfill(ctx, FulfillInput{Reference: reference, Entry: EntryVerify})
}

// ManualFulfill is the operator trigger. It refuses orders whose payment
// was never confirmed; the verify and webhook paths confirm payment
// themselves, the manual path does not.
func (s *Service) ManualFulfill(ctx context.Context, orderID uuid.UUID) (*FulfillOutcome, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order payment is %q, not confirmed", order.PaymentStatus))
	}
	return s.Fulfill(ctx, FulfillInput{Reference: order.ID.String(), Entry: EntryManual})
}

// Fulfill executes the guard sequence for one order. It is safe to call
// repeatedly and from racing entry points: at most one attempt reaches
// the purchase call.
func (s *Service) Fulfill(ctx context.Context, input FulfillInput) (*FulfillOutcome, error) {
	if input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	ctx = s.logger.WithEntryPoint(s.logger.WithOrderRef(ctx, input.Reference), string(input.Entry))

	order, err := s.orders.FindByAnyReference(ctx, input.Reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	ctx = s.logger.WithNetwork(ctx, string(order.Network))

	// Primary duplicate-delivery defense: once the upstream transaction
	// id is set, fulfillment never runs again.
	if order.UpstreamTransactionID != nil {
		s.logger.Info(ctx, "order already fulfilled, skipping")
		return &FulfillOutcome{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
	}
	if order.DeliveryStatus.InFlight() {
		s.logger.Info(ctx, "order already in flight, skipping")
		return &FulfillOutcome{Outcome: OutcomeAlreadyInProgress, Order: order}, nil
	}

	acquired, err := s.locks.Acquire(ctx, order.ID, orderLeaseTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring order lease")
	}
	if !acquired {
		s.logger.Info(ctx, "order lease held elsewhere, skipping")
		return &FulfillOutcome{Outcome: OutcomeAlreadyInProgress, Order: order}, nil
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, order.ID); releaseErr != nil {
			s.logger.Error(ctx, "releasing order lease failed", releaseErr)
		}
	}()

	// The status write lands before any outbound call so a racing second
	// trigger sees the in-flight state. Only the operator may reopen a
	// failed order, say after topping up the gateway wallet.
	markStatus := enums.DeliveryStatusProcessing
	if input.Entry == EntryManual {
		markStatus = enums.DeliveryStatusPlaced
	}
	marked, err := s.orders.MarkProcessing(ctx, order.ID, markStatus, input.Entry == EntryManual)
	if err != nil {
		return nil, err
	}
	if !marked {
		s.logger.Info(ctx, "another attempt marked the order first, skipping")
		return &FulfillOutcome{Outcome: OutcomeAlreadyInProgress, Order: order}, nil
	}
	order.PaymentStatus = enums.PaymentStatusConfirmed
	order.DeliveryStatus = markStatus
	order.FailureReason = nil

	cost, err := s.pricer.Cost(order.Network, order.PackageGB)
	if err != nil {
		reason := fmt.Sprintf("pricing unavailable for %s %dGB", order.Network, order.PackageGB)
		s.failQuietly(ctx, order, reason)
		return nil, err
	}

	// Telecel has no aggregator endpoint; the operator delivers by hand.
	if order.Network == enums.NetworkTelecel {
		if markStatus != enums.DeliveryStatusPlaced {
			if _, advErr := s.orders.AdvanceDelivery(ctx, order.ID, markStatus, enums.DeliveryStatusPlaced); advErr != nil {
				return nil, advErr
			}
			order.DeliveryStatus = enums.DeliveryStatusPlaced
		}
		s.notifier.AdminManualFulfillment(ctx, order.Reference, order.Network, s.customerPhone(order), order.PackageGB)
		s.logger.Info(ctx, "order queued for manual fulfillment")
		return &FulfillOutcome{Outcome: OutcomeManualFulfillment, Order: order}, nil
	}

	balance, err := s.gateway.CheckBalance(ctx)
	if err != nil {
		s.failQuietly(ctx, order, "gateway balance check failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInsufficientBalance, err, "balance check failed")
	}
	if !balance.Available || balance.Amount.LessThan(cost) {
		reason := fmt.Sprintf("gateway balance %s below cost %s", balance.Amount.String(), cost.String())
		s.failQuietly(ctx, order, reason)
		s.notifier.AdminLowBalance(ctx, balance.Amount)
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, reason)
	}

	result, err := s.gateway.Purchase(ctx, delivery.PurchaseInput{
		OrderID:   order.ID,
		Network:   order.Network,
		Phone:     s.customerPhone(order),
		VolumeMB:  delivery.GBToUpstreamMB(order.PackageGB),
		Reference: order.Reference,
	})
	if err != nil {
		s.failQuietly(ctx, order, "purchase call failed")
		return nil, err
	}
	if !result.Accepted {
		reason := fmt.Sprintf("upstream rejected purchase: code=%s %s", result.Code, result.RawMessage)
		s.failQuietly(ctx, order, reason)
		s.notifier.OrderFailed(ctx, s.customerPhone(order), order.Reference)
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamRejected, reason).
			WithDetails(map[string]string{"code": result.Code})
	}

	finalStatus := finalDeliveryStatus(order.Network)
	set, err := s.orders.SetUpstreamTransaction(ctx, order.ID, result.TransactionID, result.PaymentID, finalStatus)
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_orders_upstream_txn") {
			// Another attempt slipped past the guards and won the purchase.
			s.logger.Warn(ctx, "upstream transaction already recorded by a racing attempt")
			return &FulfillOutcome{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
		}
		// The purchase went through; the record write failing is an
		// operator problem, not a reason to retry the purchase.
		s.logger.Error(ctx, "persisting upstream transaction failed", err)
		return nil, err
	}
	if !set {
		s.logger.Warn(ctx, "order already carries an upstream transaction, keeping the first")
		return &FulfillOutcome{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
	}
	order.UpstreamTransactionID = &result.TransactionID
	order.UpstreamPaymentID = result.PaymentID
	order.DeliveryStatus = finalStatus

	s.notifier.OrderConfirmed(ctx, s.customerPhone(order), order.PackageGB, order.Network, s.trackingURL(order.TrackingID))
	s.logger.Info(s.logger.WithField(ctx, "delivery_status", string(finalStatus)), "order fulfilled")

	outcome := OutcomeAccepted
	if finalStatus == enums.DeliveryStatusDelivered {
		outcome = OutcomeFulfilled
	}
	return &FulfillOutcome{
		Outcome: outcome,
		Order:   order,
		Code:    result.Code,
		Message: result.RawMessage,
	}, nil
}

// failQuietly records the failure for the admin dashboard without
// escalating to the customer.
func (s *Service) failQuietly(ctx context.Context, order *models.Order, reason string) {
	if err := s.orders.MarkFailed(ctx, order.ID, reason); err != nil {
		s.logger.Error(ctx, "marking order failed", err)
	}
	order.DeliveryStatus = enums.DeliveryStatusFailed
	s.logger.Warn(s.logger.WithField(ctx, "reason", reason), "fulfillment aborted")
}

func (s *Service) customerPhone(order *models.Order) string {
	if order.Customer != nil {
		return order.Customer.Phone
	}
	return ""
}

// finalDeliveryStatus reflects how each network reports completion: MTN
// pushes a delivery webhook later, AirtelTigo completes inside the
// purchase call.
func finalDeliveryStatus(network enums.Network) enums.DeliveryStatus {
	if network == enums.NetworkMTN {
		return enums.DeliveryStatusAccepted
	}
	return enums.DeliveryStatusDelivered
}
