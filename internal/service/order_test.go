package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/service"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/trm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxManager runs callbacks directly, no database involved.
type fakeTxManager struct{}

func (fakeTxManager) BeginTx(ctx context.Context) (context.Context, trm.Transaction, error) {
	return ctx, fakeTx{}, nil
}

func (fakeTxManager) Do(ctx context.Context, callback func(ctx context.Context) error) error {
	return callback(ctx)
}

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type stubRepo struct {
	created   []entities.Order
	createErr error

	orderByID   map[int64]entities.Order
	byUser      map[int64][]entities.Order
	updateErr   error
	deleteErr   error
	lastStatus  entities.OrderStatus
	statusCalls int
}

func (r *stubRepo) CreateOrder(ctx context.Context, order entities.Order) (int64, error) {
	if r.createErr != nil {
		return 0, r.createErr
	}
	r.created = append(r.created, order)
	return int64(len(r.created)), nil
}

func (r *stubRepo) GetOrderByID(ctx context.Context, orderID int64) (entities.Order, error) {
	order, ok := r.orderByID[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return order, nil
}

func (r *stubRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]entities.Order, error) {
	return r.byUser[userID], nil
}

func (r *stubRepo) UpdateStatus(ctx context.Context, orderID int64, status entities.OrderStatus) error {
	r.statusCalls++
	r.lastStatus = status
	return r.updateErr
}

func (r *stubRepo) DeleteOrder(ctx context.Context, orderID int64) error {
	return r.deleteErr
}

type stubUsers struct {
	user    entities.User
	outcome entities.Outcome
}

func (u *stubUsers) VerifyExists(ctx context.Context, userID int64) entities.Outcome {
	return u.outcome
}

func (u *stubUsers) GetUser(ctx context.Context, userID int64) (entities.User, entities.Outcome) {
	return u.user, u.outcome
}

type stubProducts struct {
	product       entities.Product
	outcome       entities.Outcome
	adjustOutcome entities.Outcome
	adjusted      []int
}

func (p *stubProducts) GetProduct(ctx context.Context, productID int64) (entities.Product, entities.Outcome) {
	return p.product, p.outcome
}

func (p *stubProducts) UpdateQuantity(ctx context.Context, productID int64, quantity int) entities.Outcome {
	p.adjusted = append(p.adjusted, quantity)
	return p.adjustOutcome
}

type stubCache struct {
	data map[string][]byte
}

func newStubCache() *stubCache { return &stubCache{data: make(map[string][]byte)} }

func (c *stubCache) Get(key string) ([]byte, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *stubCache) Set(key string, value []byte) { c.data[key] = value }
func (c *stubCache) Remove(key string)            { delete(c.data, key) }

func valid() entities.Outcome {
	return entities.Outcome{Status: entities.VerificationValid}
}

func outcomeOf(status entities.VerificationStatus) entities.Outcome {
	return entities.Outcome{Status: status, Detail: status.String()}
}

func validRequest() entities.OrderCreationRequest {
	return entities.OrderCreationRequest{
		UserID:    1,
		ProductID: 7,
		Quantity:  3,
		Price:     decimal.RequireFromString("10.00"),
	}
}

func catalogProduct() entities.Product {
	return entities.Product{
		ID:       7,
		Price:    decimal.RequireFromString("10.00"),
		Quantity: 50,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo := &stubRepo{}
	users := &stubUsers{outcome: valid()}
	products := &stubProducts{product: catalogProduct(), outcome: valid(), adjustOutcome: valid()}
	svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(), users, products)

	orderID, err := svc.CreateOrder(context.Background(), validRequest())

	require.NoError(t, err)
	assert.EqualValues(t, 1, orderID)

	require.Len(t, repo.created, 1)
	order := repo.created[0]
	assert.EqualValues(t, 1, order.UserID)
	assert.Equal(t, entities.StatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("30.00")),
		"total: %s", order.TotalAmount)

	require.Len(t, order.Lines, 1)
	line := order.Lines[0]
	assert.EqualValues(t, 7, line.ProductID)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, line.TotalPrice.Equal(decimal.RequireFromString("30.00")))

	// 50 in stock minus 3 ordered
	assert.Equal(t, []int{47}, products.adjusted)
}

func TestCreateOrder_MalformedRequest(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*entities.OrderCreationRequest)
	}{
		{"zero user", func(r *entities.OrderCreationRequest) { r.UserID = 0 }},
		{"negative product", func(r *entities.OrderCreationRequest) { r.ProductID = -1 }},
		{"zero quantity", func(r *entities.OrderCreationRequest) { r.Quantity = 0 }},
		{"zero price", func(r *entities.OrderCreationRequest) { r.Price = decimal.Zero }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubRepo{}
			svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
				&stubUsers{outcome: valid()},
				&stubProducts{product: catalogProduct(), outcome: valid(), adjustOutcome: valid()})

			req := validRequest()
			tc.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			assert.ErrorIs(t, err, entities.ErrInvalidOrder)
			assert.Empty(t, repo.created)
		})
	}
}

func TestCreateOrder_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		user    entities.Outcome
		product entities.Outcome
		wantErr error
	}{
		{
			name:    "user not found",
			user:    outcomeOf(entities.VerificationNotFound),
			product: valid(),
			wantErr: entities.ErrUserNotFound,
		},
		{
			name:    "product not found",
			user:    valid(),
			product: outcomeOf(entities.VerificationNotFound),
			wantErr: entities.ErrProductNotFound,
		},
		{
			name:    "user service unavailable",
			user:    outcomeOf(entities.VerificationUnavailable),
			product: valid(),
			wantErr: entities.ErrServiceUnavailable,
		},
		{
			name:    "product service unavailable",
			user:    valid(),
			product: outcomeOf(entities.VerificationUnavailable),
			wantErr: entities.ErrServiceUnavailable,
		},
		{
			name:    "unavailability wins over not found",
			user:    outcomeOf(entities.VerificationNotFound),
			product: outcomeOf(entities.VerificationUnavailable),
			wantErr: entities.ErrServiceUnavailable,
		},
		{
			name:    "remote fault",
			user:    valid(),
			product: outcomeOf(entities.VerificationRemoteError),
			wantErr: entities.ErrDependencyFailed,
		},
		{
			name:    "broken payload",
			user:    outcomeOf(entities.VerificationInvalidPayload),
			product: valid(),
			wantErr: entities.ErrDependencyFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubRepo{}
			products := &stubProducts{product: catalogProduct(), outcome: tc.product, adjustOutcome: valid()}
			svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
				&stubUsers{outcome: tc.user}, products)

			// rejected requests must stay side effect free, even when repeated
			for range 2 {
				_, err := svc.CreateOrder(context.Background(), validRequest())
				require.ErrorIs(t, err, tc.wantErr)
			}
			assert.Empty(t, repo.created)
			assert.Empty(t, products.adjusted)
		})
	}
}

func TestCreateOrder_PriceMismatch(t *testing.T) {
	repo := &stubRepo{}
	svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
		&stubUsers{outcome: valid()},
		&stubProducts{product: catalogProduct(), outcome: valid(), adjustOutcome: valid()})

	req := validRequest()
	req.Price = decimal.RequireFromString("9.99")

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, entities.ErrPriceMismatch)
	assert.Empty(t, repo.created)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	repo := &stubRepo{}
	product := catalogProduct()
	product.Quantity = 2
	svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
		&stubUsers{outcome: valid()},
		&stubProducts{product: product, outcome: valid(), adjustOutcome: valid()})

	_, err := svc.CreateOrder(context.Background(), validRequest())
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)
	assert.Empty(t, repo.created)
}

func TestCreateOrder_CompensationFailed(t *testing.T) {
	repo := &stubRepo{}
	products := &stubProducts{
		product:       catalogProduct(),
		outcome:       valid(),
		adjustOutcome: outcomeOf(entities.VerificationUnavailable),
	}
	svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
		&stubUsers{outcome: valid()}, products)

	orderID, err := svc.CreateOrder(context.Background(), validRequest())

	assert.ErrorIs(t, err, entities.ErrCompensationFailed)
	// the committed order is not rolled back and its id is still reported
	assert.EqualValues(t, 1, orderID)
	require.Len(t, repo.created, 1)
	assert.Equal(t, entities.StatusPending, repo.created[0].Status)
}

func TestCreateOrder_StoreFailure(t *testing.T) {
	repo := &stubRepo{createErr: errors.New("connection reset")}
	svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
		&stubUsers{outcome: valid()},
		&stubProducts{product: catalogProduct(), outcome: valid(), adjustOutcome: valid()})

	_, err := svc.CreateOrder(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, entities.ErrCompensationFailed)
}

func TestGetOrderByID(t *testing.T) {
	order := entities.NewOrder(1, 7, 3, decimal.RequireFromString("10.00"))
	order.ID = 42

	t.Run("found and enriched", func(t *testing.T) {
		repo := &stubRepo{orderByID: map[int64]entities.Order{42: order}}
		users := &stubUsers{user: entities.User{ID: 1, Name: "alice"}, outcome: valid()}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(), users, &stubProducts{})

		details, err := svc.GetOrderByID(context.Background(), 42)
		require.NoError(t, err)
		assert.EqualValues(t, 42, details.ID)
		assert.Equal(t, "alice", details.UserName)
	})

	t.Run("user directory down degrades the name", func(t *testing.T) {
		repo := &stubRepo{orderByID: map[int64]entities.Order{42: order}}
		users := &stubUsers{outcome: outcomeOf(entities.VerificationUnavailable)}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(), users, &stubProducts{})

		details, err := svc.GetOrderByID(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "unknown", details.UserName)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &stubRepo{}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
			&stubUsers{outcome: valid()}, &stubProducts{})

		_, err := svc.GetOrderByID(context.Background(), 42)
		assert.ErrorIs(t, err, entities.ErrOrderNotFound)
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		repo := &stubRepo{orderByID: map[int64]entities.Order{42: order}}
		users := &stubUsers{user: entities.User{ID: 1, Name: "alice"}, outcome: valid()}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(), users, &stubProducts{})

		_, err := svc.GetOrderByID(context.Background(), 42)
		require.NoError(t, err)

		// the store no longer knows the order, the cache must
		delete(repo.orderByID, 42)
		details, err := svc.GetOrderByID(context.Background(), 42)
		require.NoError(t, err)
		assert.EqualValues(t, 42, details.ID)
	})
}

func TestGetOrdersByUserID(t *testing.T) {
	t.Run("empty result is not found", func(t *testing.T) {
		repo := &stubRepo{}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
			&stubUsers{outcome: valid()}, &stubProducts{})

		_, err := svc.GetOrdersByUserID(context.Background(), 1)
		assert.ErrorIs(t, err, entities.ErrOrderNotFound)
	})

	t.Run("all orders share the resolved name", func(t *testing.T) {
		first := entities.NewOrder(1, 7, 1, decimal.RequireFromString("5.00"))
		second := entities.NewOrder(1, 8, 2, decimal.RequireFromString("3.00"))
		repo := &stubRepo{byUser: map[int64][]entities.Order{1: {first, second}}}
		users := &stubUsers{user: entities.User{ID: 1, Name: "alice"}, outcome: valid()}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(), users, &stubProducts{})

		details, err := svc.GetOrdersByUserID(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, details, 2)
		for _, d := range details {
			assert.Equal(t, "alice", d.UserName)
		}
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("unknown status never reaches the store", func(t *testing.T) {
		repo := &stubRepo{}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
			&stubUsers{outcome: valid()}, &stubProducts{})

		err := svc.UpdateOrderStatus(context.Background(), 42, "SHIPPED")
		assert.ErrorIs(t, err, entities.ErrInvalidStatus)
		assert.Zero(t, repo.statusCalls)
	})

	t.Run("valid status updates and invalidates cache", func(t *testing.T) {
		repo := &stubRepo{}
		cache := newStubCache()
		cache.Set("42", []byte("stale"))
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, cache,
			&stubUsers{outcome: valid()}, &stubProducts{})

		err := svc.UpdateOrderStatus(context.Background(), 42, "COMPLETED")
		require.NoError(t, err)
		assert.Equal(t, entities.StatusCompleted, repo.lastStatus)
		_, ok := cache.Get("42")
		assert.False(t, ok)
	})

	t.Run("unknown order", func(t *testing.T) {
		repo := &stubRepo{updateErr: entities.ErrOrderNotFound}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
			&stubUsers{outcome: valid()}, &stubProducts{})

		err := svc.UpdateOrderStatus(context.Background(), 42, "CANCELED")
		assert.ErrorIs(t, err, entities.ErrOrderNotFound)
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Run("unknown order", func(t *testing.T) {
		repo := &stubRepo{deleteErr: entities.ErrOrderNotFound}
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, newStubCache(),
			&stubUsers{outcome: valid()}, &stubProducts{})

		err := svc.DeleteOrder(context.Background(), 42)
		assert.ErrorIs(t, err, entities.ErrOrderNotFound)
	})

	t.Run("deletion invalidates cache", func(t *testing.T) {
		repo := &stubRepo{}
		cache := newStubCache()
		cache.Set("42", []byte("stale"))
		svc := service.NewOrderService(testLogger(), fakeTxManager{}, repo, cache,
			&stubUsers{outcome: valid()}, &stubProducts{})

		require.NoError(t, svc.DeleteOrder(context.Background(), 42))
		_, ok := cache.Get("42")
		assert.False(t, ok)
	})
}
