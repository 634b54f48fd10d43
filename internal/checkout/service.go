package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/internal/customers"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/internal/pricing"
	"github.com/aglago/iselldata-backend/pkg/db"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

var (
	errDBRequired        = errors.New("checkout db client is required")
	errOrdersRequired    = errors.New("checkout orders repository is required")
	errCustomersRequired = errors.New("checkout customers repository is required")
	errLoggerRequired    = errors.New("checkout logger is required")
)

// Input is one storefront checkout submission.
type Input struct {
	Phone     string
	Name      *string
	Network   enums.Network
	PackageGB int
}

// Service creates orders for the storefront. The customer pays through
// the payment provider client-side; the order starts pending on both
// payment and delivery.
type Service struct {
	db        *db.Client
	orders    orders.Repository
	customers customers.Repository
	logger    *logger.Logger
}

func NewService(dbClient *db.Client, ordersRepo orders.Repository, customersRepo customers.Repository, logg *logger.Logger) (*Service, error) {
	switch {
	case dbClient == nil:
		return nil, errDBRequired
	case ordersRepo == nil:
		return nil, errOrdersRequired
	case customersRepo == nil:
		return nil, errCustomersRequired
	case logg == nil:
		return nil, errLoggerRequired
	}
	return &Service{db: dbClient, orders: ordersRepo, customers: customersRepo, logger: logg}, nil
}

// Checkout prices the tier, deduplicates the customer by phone, and
// creates the pending order in one transaction.
func (s *Service) Checkout(ctx context.Context, input Input) (*models.Order, error) {
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if !input.Network.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedNetwork, "unknown network")
	}

	price, err := pricing.Retail(input.Network, input.PackageGB)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		customer, txErr := s.customers.WithTx(tx).FindOrCreateByPhone(ctx, phone, input.Name)
		if txErr != nil {
			return txErr
		}

		order = &models.Order{
			ID:           uuid.New(),
			Reference:    NewReference(),
			TrackingID:   NewTrackingID(),
			CustomerID:   customer.ID,
			Network:      input.Network,
			PackageGB:    input.PackageGB,
			PriceCharged: price,
			Customer:     customer,
		}
		_, txErr = s.orders.WithTx(tx).Create(ctx, order)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithNetwork(s.logger.WithOrderRef(ctx, order.Reference), string(order.Network))
	s.logger.Info(ctx, "order created")
	return order, nil
}

// NewReference returns a short client-visible order reference.
func NewReference() string {
	return "GD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewTrackingID returns the customer-visible tracking identifier.
func NewTrackingID() string {
	return "TRK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
