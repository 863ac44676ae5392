package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/api/validators"
	"github.com/wanterio/wanterio-backend/internal/cart"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// CartStore is the cart manager surface used by the cart endpoints.
type CartStore interface {
	GetCart() cart.Cart
	AddItem(item cart.Item, quantity int) bool
	UpdateQuantity(id string, quantity int) bool
	RemoveItem(id string)
	ClearCart()
	ValidateStock() cart.StockValidation
}

// ItemResolver turns a medicine id into a priced cart line.
type ItemResolver interface {
	CartItem(ctx context.Context, id string) (cart.Item, error)
}

type addCartItemRequest struct {
	MedicineID string `json:"medicine_id" validate:"required,max=64"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func CartGet(store CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, store.GetCart())
	}
}

// CartAddItem resolves the medicine from the catalogue so price and stock
// come from the server, then adds it.
func CartAddItem(store CartStore, items ItemResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := items.CartItem(r.Context(), strings.TrimSpace(body.MedicineID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !store.AddItem(item, body.Quantity) {
			inCart := 0
			for _, line := range store.GetCart().Items {
				if line.ID == item.ID {
					inCart = line.Quantity
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds available stock").
				WithDetails(map[string]any{"available": item.StockQuantity, "in_cart": inCart}))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store.GetCart())
	}
}

func CartUpdateItem(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "itemId")
		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if *body.Quantity > 0 && !inCart(store.GetCart(), id) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart"))
			return
		}
		if !store.UpdateQuantity(id, *body.Quantity) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds available stock"))
			return
		}
		responses.WriteSuccess(w, store.GetCart())
	}
}

func CartRemoveItem(store CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.RemoveItem(chi.URLParam(r, "itemId"))
		responses.WriteSuccess(w, store.GetCart())
	}
}

func CartClear(store CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.ClearCart()
		responses.WriteSuccess(w, store.GetCart())
	}
}

func CartValidate(store CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, store.ValidateStock())
	}
}

func inCart(c cart.Cart, id string) bool {
	for _, item := range c.Items {
		if item.ID == id {
			return true
		}
	}
	return false
}
