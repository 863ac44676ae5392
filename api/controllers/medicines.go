package controllers

import (
	"context"
	"net/http"

	"github.com/wanterio/wanterio-backend/api/responses"
	"github.com/wanterio/wanterio-backend/api/validators"
	"github.com/wanterio/wanterio-backend/internal/catalog"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// CatalogService lists medicines.
type CatalogService interface {
	List(ctx context.Context, filter catalog.Filter) (*catalog.Listing, error)
}

func MedicinesList(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := catalog.Filter{
			Category: validators.SanitizeString(query.Get("category"), 80),
			Search:   validators.SanitizeString(query.Get("search"), 120),
		}
		listing, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
