package checkout

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wanterio/wanterio-backend/internal/cart"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	pkgcheckout "github.com/wanterio/wanterio-backend/pkg/checkout"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

type sessionReader interface {
	Current() session.Snapshot
}

type cartManager interface {
	GetCart() cart.Cart
	RefreshStock(levels map[string]int) cart.StockValidation
	Deduct(ordered map[string]int)
}

type orderStore interface {
	StockLevels(ctx context.Context, ids []string) (map[string]int, error)
	CreateOrder(ctx context.Context, order backend.NewOrder) (*backend.Order, error)
}

// ShippingInput is the delivery information collected at checkout.
type ShippingInput struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=40"`
	Address  string `json:"address" validate:"required,max=500"`
	City     string `json:"city" validate:"required,max=120"`
	ZipCode  string `json:"zip_code" validate:"required,max=20"`
}

// PlaceOrderInput captures the checkout form.
type PlaceOrderInput struct {
	Shipping      ShippingInput `json:"shipping"`
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=cod bank_transfer"`
}

// OrderReceipt is returned after an order is recorded.
type OrderReceipt struct {
	Order *backend.Order      `json:"order"`
	Quote pkgcheckout.Quote   `json:"quote"`
	Items []backend.OrderItem `json:"items"`
}

// ServiceParams bundles the dependencies required to build a Service.
type ServiceParams struct {
	Session sessionReader
	Cart    cartManager
	Orders  orderStore
	Logger  *logger.Logger
	Timeout time.Duration
}

// Service turns the cart into an order.
type Service struct {
	session  sessionReader
	cart     cartManager
	orders   orderStore
	logg     *logger.Logger
	timeout  time.Duration
	validate *validator.Validate
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Session == nil {
		return nil, fmt.Errorf("session reader required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart manager required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		session:  params.Session,
		cart:     params.Cart,
		orders:   params.Orders,
		logg:     logg,
		timeout:  timeout,
		validate: newValidator(),
	}, nil
}

// PlaceOrder re-checks stock against the catalogue, prices the cart and
// records the order. The cart is cleared only after the order is stored.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderReceipt, error) {
	snap := s.session.Current()
	if !snap.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place an order")
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	current := s.cart.GetCart()
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	ctx = s.logg.WithUserID(ctx, snap.User.ID.String())

	ids := make([]string, 0, len(current.Items))
	for _, item := range current.Items {
		ids = append(ids, item.ID)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	levels, err := s.orders.StockLevels(callCtx, ids)
	cancel()
	if err != nil {
		return nil, dependencyError(err, "refresh stock levels")
	}
	for _, id := range ids {
		if _, ok := levels[id]; !ok {
			levels[id] = 0
		}
	}

	if result := s.cart.RefreshStock(levels); !result.Valid {
		return nil, stockConflict(s.cart.GetCart())
	}

	priced := s.cart.GetCart()
	if priced.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	quote := pkgcheckout.QuoteFor(priced.Total)
	items := make([]backend.OrderItem, 0, len(priced.Items))
	ordered := make(map[string]int, len(priced.Items))
	for _, item := range priced.Items {
		ordered[item.ID] = item.Quantity
		items = append(items, backend.OrderItem{
			MedicineID: item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}

	callCtx, cancel = context.WithTimeout(ctx, s.timeout)
	order, err := s.orders.CreateOrder(callCtx, backend.NewOrder{
		UserID:        snap.User.ID,
		PaymentMethod: method,
		Shipping:      shippingInfo(input.Shipping),
		Subtotal:      quote.Subtotal,
		Tax:           quote.Tax,
		ShippingCost:  quote.Shipping,
		Total:         quote.Total,
		Items:         items,
	})
	cancel()
	if err != nil {
		return nil, dependencyError(err, "create order")
	}

	s.cart.Deduct(ordered)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"total":    quote.Total.StringFixed(2),
	}), "order placed")
	return &OrderReceipt{Order: order, Quote: quote, Items: items}, nil
}

// Quote prices the current cart without placing an order.
func (s *Service) Quote() pkgcheckout.Quote {
	return pkgcheckout.QuoteFor(s.cart.GetCart().Total)
}

func (s *Service) validateInput(input PlaceOrderInput) error {
	input.Shipping.Email = strings.TrimSpace(input.Shipping.Email)
	if err := s.validate.Struct(input); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Namespace()] = fieldErr.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout details").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout details")
	}
	return nil
}

func stockConflict(c cart.Cart) error {
	lines := make([]pkgcheckout.StockLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, pkgcheckout.StockLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Available: item.StockQuantity,
		})
	}
	return pkgcheckout.StockConflict(pkgcheckout.CheckStock(lines))
}

func dependencyError(err error, step string) error {
	if backend.IsNotConfigured(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout disabled").WithDetails(map[string]any{"step": step})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step).WithDetails(map[string]any{"step": step})
}

func shippingInfo(in ShippingInput) backend.ShippingInfo {
	return backend.ShippingInfo{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
		City:     strings.TrimSpace(in.City),
		ZipCode:  strings.TrimSpace(in.ZipCode),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}
