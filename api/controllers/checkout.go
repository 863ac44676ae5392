package controllers

import (
	"context"
	"net/http"

	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/api/validators"
	"github.com/wanterio/wanterio-backend/internal/checkout"
	pkgcheckout "github.com/wanterio/wanterio-backend/pkg/checkout"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// CheckoutService places orders from the cart.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, input checkout.PlaceOrderInput) (*checkout.OrderReceipt, error)
	Quote() pkgcheckout.Quote
}

func CheckoutPlaceOrder(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkout.PlaceOrderInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.PlaceOrder(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

func CheckoutQuote(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Quote())
	}
}
