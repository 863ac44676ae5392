package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
)

type stubCatalog struct {
	backend.Unconfigured
	medicines []backend.Medicine
	err       error
}

func (s stubCatalog) ListMedicines(context.Context, backend.MedicineFilter) ([]backend.Medicine, error) {
	return s.medicines, s.err
}

func (s stubCatalog) GetMedicine(_ context.Context, id string) (*backend.Medicine, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, m := range s.medicines {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, backend.ErrNotFound
}

func TestListFallsBackToDemoCatalogue(t *testing.T) {
	svc, err := NewService(backend.Unconfigured{}, nil, 0)
	require.NoError(t, err)

	listing, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.True(t, listing.Demo)
	assert.Len(t, listing.Medicines, 8)
	assert.Equal(t, []string{"Allergy", "Antibiotics", "Digestive", "Pain Relief", "Vitamins"}, listing.Categories)

	listing, err = svc.List(context.Background(), Filter{Category: "Allergy"})
	require.NoError(t, err)
	assert.Len(t, listing.Medicines, 2)

	listing, err = svc.List(context.Background(), Filter{Search: "ANTIHISTAMINE"})
	require.NoError(t, err)
	assert.Len(t, listing.Medicines, 2)
}

func TestListUsesBackend(t *testing.T) {
	svc, err := NewService(stubCatalog{medicines: []backend.Medicine{{ID: "m1", Name: "A", Category: "Vitamins"}}}, nil, 0)
	require.NoError(t, err)

	listing, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.False(t, listing.Demo)
	assert.Len(t, listing.Medicines, 1)
	assert.Equal(t, []string{"Vitamins"}, listing.Categories)
}

func TestListEmptyResultIsNotDemo(t *testing.T) {
	svc, err := NewService(stubCatalog{}, nil, 0)
	require.NoError(t, err)

	listing, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.False(t, listing.Demo)
	assert.Empty(t, listing.Medicines)
}

func TestListBackendError(t *testing.T) {
	svc, err := NewService(stubCatalog{err: errors.New("timeout")}, nil, 0)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), Filter{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestCartItem(t *testing.T) {
	svc, err := NewService(backend.Unconfigured{}, nil, 0)
	require.NoError(t, err)

	item, err := svc.CartItem(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", item.Name)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 100, item.StockQuantity)

	_, err = svc.CartItem(context.Background(), "99")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	svc, err = NewService(stubCatalog{}, nil, 0)
	require.NoError(t, err)
	_, err = svc.CartItem(context.Background(), "m1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
