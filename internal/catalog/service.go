package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wanterio/wanterio-backend/internal/cart"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Filter narrows a listing.
type Filter = backend.MedicineFilter

// Listing is one page of the catalogue. Demo is set when the bundled
// catalogue is served because no backend is configured.
type Listing struct {
	Medicines  []backend.Medicine `json:"medicines"`
	Categories []string           `json:"categories"`
	Demo       bool               `json:"demo"`
}

// Service reads the medicine catalogue.
type Service struct {
	source  backend.Catalog
	logg    *logger.Logger
	timeout time.Duration
}

// NewService builds the catalogue service.
func NewService(source backend.Catalog, logg *logger.Logger, timeout time.Duration) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{source: source, logg: logg, timeout: timeout}, nil
}

// List returns medicines matching filter.
func (s *Service) List(ctx context.Context, filter Filter) (*Listing, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	medicines, err := s.source.ListMedicines(callCtx, filter)
	if backend.IsNotConfigured(err) {
		s.logg.Debug(ctx, "backend not configured; serving demo catalogue")
		return demoListing(filter), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list medicines")
	}
	return &Listing{Medicines: medicines, Categories: categoriesOf(medicines)}, nil
}

// CartItem resolves a medicine into a cart line with a fresh stock snapshot.
func (s *Service) CartItem(ctx context.Context, id string) (cart.Item, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	medicine, err := s.source.GetMedicine(callCtx, id)
	switch {
	case backend.IsNotConfigured(err):
		for _, candidate := range demoMedicines {
			if candidate.ID == id {
				return toCartItem(candidate), nil
			}
		}
		return cart.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	case errors.Is(err, backend.ErrNotFound):
		return cart.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	case err != nil:
		return cart.Item{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	return toCartItem(*medicine), nil
}

func toCartItem(m backend.Medicine) cart.Item {
	return cart.Item{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Category:      m.Category,
		ImageURL:      m.ImageURL,
		Price:         m.Price,
		StockQuantity: m.StockQuantity,
	}
}

func demoListing(filter Filter) *Listing {
	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]backend.Medicine, 0, len(demoMedicines))
	for _, m := range demoMedicines {
		if category != "" && m.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.Description), search) {
			continue
		}
		out = append(out, m)
	}
	return &Listing{Medicines: out, Categories: categoriesOf(demoMedicines), Demo: true}
}

func categoriesOf(medicines []backend.Medicine) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, m := range medicines {
		if m.Category == "" {
			continue
		}
		if _, ok := seen[m.Category]; ok {
			continue
		}
		seen[m.Category] = struct{}{}
		out = append(out, m.Category)
	}
	sort.Strings(out)
	return out
}
