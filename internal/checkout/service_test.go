package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanterio/wanterio-backend/internal/cart"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/storage"
)

type stubSession struct {
	snap session.Snapshot
}

func (s stubSession) Current() session.Snapshot { return s.snap }

func signedIn() stubSession {
	user := backend.User{ID: uuid.New(), Email: "ada@example.com"}
	return stubSession{snap: session.Snapshot{User: &user, Roles: []enums.Role{enums.RolePatient}, State: enums.SessionStateAuthenticated}}
}

type stubOrders struct {
	levels    map[string]int
	levelsErr error
	createErr error
	created   []backend.NewOrder
	onCreate  func()
}

func (s *stubOrders) StockLevels(_ context.Context, ids []string) (map[string]int, error) {
	if s.levelsErr != nil {
		return nil, s.levelsErr
	}
	out := map[string]int{}
	for _, id := range ids {
		if level, ok := s.levels[id]; ok {
			out[id] = level
		}
	}
	return out, nil
}

func (s *stubOrders) CreateOrder(_ context.Context, order backend.NewOrder) (*backend.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, order)
	if s.onCreate != nil {
		s.onCreate()
	}
	return &backend.Order{ID: uuid.New(), UserID: order.UserID, Status: enums.OrderStatusPending, Total: order.Total, Items: order.Items}, nil
}

func newCart(t *testing.T) *cart.Manager {
	t.Helper()
	m, err := cart.NewManager(cart.ManagerParams{Storage: storage.NewMemoryStore(0)})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func validInput() PlaceOrderInput {
	return PlaceOrderInput{
		Shipping: ShippingInput{
			FullName: "Ada Patient",
			Email:    "ada@example.com",
			Phone:    "555-0100",
			Address:  "1 Main St",
			City:     "Springfield",
			ZipCode:  "12345",
		},
		PaymentMethod: "cod",
	}
}

func item(id, name, price string, stock int) cart.Item {
	return cart.Item{ID: id, Name: name, Price: decimal.RequireFromString(price), StockQuantity: stock}
}

func newService(t *testing.T, sess sessionReader, c *cart.Manager, orders *stubOrders) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Session: sess, Cart: c, Orders: orders})
	require.NoError(t, err)
	return svc
}

func TestPlaceOrderPricesAndClearsCart(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("m1", "Paracetamol 500mg", "12.50", 100), 2))
	orders := &stubOrders{levels: map[string]int{"m1": 80}}
	svc := newService(t, signedIn(), c, orders)

	receipt, err := svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, receipt.Quote.Subtotal.Equal(decimal.RequireFromString("25")))
	assert.True(t, receipt.Quote.Tax.Equal(decimal.RequireFromString("2")))
	assert.True(t, receipt.Quote.Shipping.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, receipt.Quote.Total.Equal(decimal.RequireFromString("36.99")))
	require.Len(t, orders.created, 1)
	assert.Equal(t, enums.PaymentMethodCOD, orders.created[0].PaymentMethod)
	assert.Equal(t, "Springfield", orders.created[0].Shipping.City)
	assert.True(t, c.GetCart().IsEmpty())
}

func TestPlaceOrderFreeShippingAboveThreshold(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("m1", "Vitamin C 1000mg", "18.90", 120), 3))
	svc := newService(t, signedIn(), c, &stubOrders{levels: map[string]int{"m1": 120}})

	receipt, err := svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	assert.True(t, receipt.Quote.Shipping.IsZero())
	assert.True(t, receipt.Quote.Total.Equal(decimal.RequireFromString("61.24")))
}

func TestPlaceOrderRejectsStaleStock(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("m1", "Paracetamol 500mg", "12.50", 100), 4))
	require.True(t, c.AddItem(item("m2", "Ibuprofen 400mg", "15.30", 75), 1))
	orders := &stubOrders{levels: map[string]int{"m1": 3}}
	svc := newService(t, signedIn(), c, orders)

	_, err := svc.PlaceOrder(context.Background(), validInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Len(t, details["violations"], 2)
	assert.Empty(t, orders.created)
	assert.Equal(t, 5, c.GetCart().ItemCount)
}

func TestPlaceOrderRequiresSession(t *testing.T) {
	c := newCart(t)
	svc := newService(t, stubSession{snap: session.Snapshot{State: enums.SessionStateUnauthenticated}}, c, &stubOrders{})

	_, err := svc.PlaceOrder(context.Background(), validInput())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("m1", "Paracetamol 500mg", "12.50", 100), 1))
	svc := newService(t, signedIn(), c, &stubOrders{levels: map[string]int{"m1": 100}})

	input := validInput()
	input.Shipping.Email = "not-an-email"
	input.PaymentMethod = "card"
	_, err := svc.PlaceOrder(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Equal(t, "email", details["PlaceOrderInput.shipping.email"])
	assert.Equal(t, "oneof", details["PlaceOrderInput.payment_method"])
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	svc := newService(t, signedIn(), newCart(t), &stubOrders{})
	_, err := svc.PlaceOrder(context.Background(), validInput())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderDisabledWithoutBackend(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("1", "Paracetamol 500mg", "12.50", 100), 1))
	svc := newService(t, signedIn(), c, &stubOrders{levelsErr: backend.ErrNotConfigured})

	_, err := svc.PlaceOrder(context.Background(), validInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Equal(t, "checkout disabled", typed.Message())
	assert.Equal(t, 1, c.GetCart().ItemCount)
}

func TestPlaceOrderKeepsCartWhenInsertFails(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("m1", "Paracetamol 500mg", "12.50", 100), 1))
	svc := newService(t, signedIn(), c, &stubOrders{levels: map[string]int{"m1": 100}, createErr: errors.New("tx aborted")})

	_, err := svc.PlaceOrder(context.Background(), validInput())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 1, c.GetCart().ItemCount)
}

func TestPlaceOrderKeepsLinesAddedWhileOrdering(t *testing.T) {
	c := newCart(t)
	require.True(t, c.AddItem(item("m1", "Paracetamol 500mg", "12.50", 100), 2))
	orders := &stubOrders{levels: map[string]int{"m1": 80}}
	orders.onCreate = func() {
		require.True(t, c.AddItem(item("m1", "Paracetamol 500mg", "12.50", 100), 1))
		require.True(t, c.AddItem(item("m2", "Ibuprofen 200mg", "8", 10), 4))
	}
	svc := newService(t, signedIn(), c, orders)

	receipt, err := svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, 2, receipt.Items[0].Quantity)

	left := c.GetCart()
	require.Len(t, left.Items, 2)
	assert.Equal(t, "m1", left.Items[0].ID)
	assert.Equal(t, 1, left.Items[0].Quantity)
	assert.Equal(t, "m2", left.Items[1].ID)
	assert.Equal(t, 4, left.Items[1].Quantity)
}
