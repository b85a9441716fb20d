package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/trm"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/utils"

	"golang.org/x/sync/errgroup"
)

type OrderRepo interface {
	// CreateOrder writes the order and its lines as one logical unit.
	CreateOrder(ctx context.Context, order entities.Order) (int64, error)
	GetOrderByID(ctx context.Context, orderID int64) (entities.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]entities.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status entities.OrderStatus) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

type UserVerifier interface {
	VerifyExists(ctx context.Context, userID int64) entities.Outcome
	GetUser(ctx context.Context, userID int64) (entities.User, entities.Outcome)
}

type ProductVerifier interface {
	GetProduct(ctx context.Context, productID int64) (entities.Product, entities.Outcome)
	UpdateQuantity(ctx context.Context, productID int64, quantity int) entities.Outcome
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
}

// unknownUserName is the sentinel display name used when the user directory
// cannot resolve an owner. Reads degrade to it instead of failing.
const unknownUserName = "unknown"

var storeRetry = utils.RetryConfig{
	InitialDelay: 100 * time.Millisecond,
	MaxAttempts:  3,
	Multiplier:   2,
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      OrderRepo
	cache     Cache
	users     UserVerifier
	products  ProductVerifier
}

func NewOrderService(logger *slog.Logger, txManager trm.Manager, repo OrderRepo, cache Cache, users UserVerifier, products ProductVerifier) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		users:     users,
		products:  products,
	}
}

// CreateOrder drives the creation state machine:
// Received -> Validating -> {Rejected | Committing} -> {Committed | CompensationFailed}.
// No order row is ever written unless both dependencies confirmed the request,
// and the inventory decrement is issued only after the row exists.
func (s *orderService) CreateOrder(ctx context.Context, req entities.OrderCreationRequest) (int64, error) {
	if req.UserID <= 0 || req.ProductID <= 0 || req.Quantity <= 0 || !req.Price.IsPositive() {
		return 0, fmt.Errorf("%w: malformed creation request", entities.ErrInvalidOrder)
	}

	// the two verifications are independent and run concurrently
	var (
		userOutcome    entities.Outcome
		product        entities.Product
		productOutcome entities.Outcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		userOutcome = s.users.VerifyExists(gctx, req.UserID)
		return nil
	})
	g.Go(func() error {
		product, productOutcome = s.products.GetProduct(gctx, req.ProductID)
		return nil
	})
	g.Wait()

	if err := s.classifyValidation(ctx, userOutcome, productOutcome); err != nil {
		return 0, err
	}

	if !req.Price.Equal(product.Price) {
		return 0, fmt.Errorf("%w: submitted %s, catalog %s",
			entities.ErrPriceMismatch, req.Price, product.Price)
	}
	if req.Quantity > product.Quantity {
		return 0, fmt.Errorf("%w: requested %d, available %d",
			entities.ErrInsufficientStock, req.Quantity, product.Quantity)
	}

	order := entities.NewOrder(req.UserID, req.ProductID, req.Quantity, product.Price)

	var orderID int64
	commit := func() error {
		return s.txManager.Do(ctx, func(ctx context.Context) error {
			id, err := s.repo.CreateOrder(ctx, order)
			if err != nil {
				return err
			}
			orderID = id
			return nil
		})
	}
	// a failed transaction leaves no rows, retrying the commit is safe
	if err := utils.Retry(storeRetry, commit); err != nil {
		return 0, fmt.Errorf("failed to commit order: %w", err)
	}
	if orderID == 0 {
		return 0, entities.ErrOrderNotCommitted
	}

	s.logger.InfoContext(ctx, "order committed",
		slog.Int64("order_id", orderID),
		slog.String("total", order.TotalAmount.String()),
	)

	if err := s.adjustInventory(ctx, req); err != nil {
		// the order stays PENDING for later reconciliation, by policy it is
		// not rolled back here
		s.logger.ErrorContext(ctx, "inventory adjustment failed after commit",
			slog.Int64("order_id", orderID),
			slog.Int64("product_id", req.ProductID),
			slog.Any("error", err),
		)
		return orderID, fmt.Errorf("%w: order %d", entities.ErrCompensationFailed, orderID)
	}

	return orderID, nil
}

// classifyValidation applies the rejection policy: unavailability wins over
// not-found, not-found wins over remote faults. Orders are never created
// while a dependency's truth cannot be established.
func (s *orderService) classifyValidation(ctx context.Context, user, product entities.Outcome) error {
	for _, o := range []entities.Outcome{user, product} {
		if o.Status == entities.VerificationUnavailable {
			return fmt.Errorf("%w: %s", entities.ErrServiceUnavailable, o.Detail)
		}
	}
	if user.Status == entities.VerificationNotFound {
		return entities.ErrUserNotFound
	}
	if product.Status == entities.VerificationNotFound {
		return entities.ErrProductNotFound
	}
	for _, o := range []entities.Outcome{user, product} {
		if !o.Valid() {
			s.logger.ErrorContext(ctx, "verification failed",
				slog.String("status", o.Status.String()),
				slog.String("detail", o.Detail),
			)
			return fmt.Errorf("%w: %s", entities.ErrDependencyFailed, o.Detail)
		}
	}
	return nil
}

// adjustInventory reflects the committed order in the catalog: refetch the
// current quantity, subtract what was ordered, push the new absolute value.
func (s *orderService) adjustInventory(ctx context.Context, req entities.OrderCreationRequest) error {
	product, outcome := s.products.GetProduct(ctx, req.ProductID)
	if !outcome.Valid() {
		return fmt.Errorf("refetch product: %s %s", outcome.Status, outcome.Detail)
	}

	newQuantity := product.Quantity - req.Quantity
	if adjusted := s.products.UpdateQuantity(ctx, req.ProductID, newQuantity); !adjusted.Valid() {
		return fmt.Errorf("update quantity: %s %s", adjusted.Status, adjusted.Detail)
	}
	return nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID int64) (entities.OrderDetails, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return entities.OrderDetails{}, err
	}

	return entities.OrderDetails{
		Order:    order,
		UserName: s.resolveUserName(ctx, order.UserID),
	}, nil
}

func (s *orderService) GetOrdersByUserID(ctx context.Context, userID int64) ([]entities.OrderDetails, error) {
	var orders []entities.Order
	fn := func() error {
		var err error
		orders, err = s.repo.GetOrdersByUserID(ctx, userID)
		return err
	}
	if err := utils.Retry(storeRetry, fn); err != nil {
		return nil, err
	}

	// an empty result set is a not-found outcome, not an empty success
	if len(orders) == 0 {
		return nil, entities.ErrOrderNotFound
	}

	userName := s.resolveUserName(ctx, userID)
	details := make([]entities.OrderDetails, 0, len(orders))
	for _, order := range orders {
		details = append(details, entities.OrderDetails{Order: order, UserName: userName})
	}
	return details, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	// reject unknown status strings before touching the store
	parsed, err := entities.ParseOrderStatus(status)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, orderID, parsed); err != nil {
		return err
	}

	s.cache.Remove(cacheKey(orderID))
	s.logger.InfoContext(ctx, "order status updated",
		slog.Int64("order_id", orderID), slog.String("status", status))
	return nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID int64) error {
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		return s.repo.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}

	s.cache.Remove(cacheKey(orderID))
	s.logger.InfoContext(ctx, "order deleted", slog.Int64("order_id", orderID))
	return nil
}

func (s *orderService) loadOrder(ctx context.Context, orderID int64) (entities.Order, error) {
	key := cacheKey(orderID)
	if data, ok := s.cache.Get(key); ok {
		var order entities.Order
		if err := order.Unmarshal(data); err == nil {
			return order, nil
		}
		// corrupted entry, fall through to the store
		s.cache.Remove(key)
	}

	var order entities.Order
	fn := func() error {
		var err error
		order, err = s.repo.GetOrderByID(ctx, orderID)
		return err
	}
	if err := utils.Retry(storeRetry, fn, entities.ErrOrderNotFound); err != nil {
		return entities.Order{}, err
	}

	if data, err := order.Marshal(); err == nil {
		s.cache.Set(key, data)
	}
	return order, nil
}

// resolveUserName degrades gracefully: an unavailable or misbehaving user
// directory never fails a read, the sentinel name is substituted instead.
func (s *orderService) resolveUserName(ctx context.Context, userID int64) string {
	user, outcome := s.users.GetUser(ctx, userID)
	if outcome.Valid() {
		return user.Name
	}
	s.logger.WarnContext(ctx, "user name unresolved",
		slog.Int64("user_id", userID),
		slog.String("status", outcome.Status.String()),
	)
	return unknownUserName
}

func cacheKey(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}
