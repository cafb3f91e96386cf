package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovitrine/precos/internal/filter"
)

func TestFilterSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewFilterSessionService(newTestCatalog(t, nil), time.Minute)

	view, err := svc.Create(ctx, "carros")
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, filter.StageEmpty, view.Stage)
	require.Len(t, view.Options.Brands, 1)
	assert.Equal(t, "honda", view.Options.Brands[0].Code)

	view, err = svc.SetField(ctx, view.ID, filter.FieldBrand, "honda")
	require.NoError(t, err)
	view, err = svc.SetField(ctx, view.ID, filter.FieldModel, "honda-civic")
	require.NoError(t, err)
	assert.Equal(t, []int{2018, 2017}, view.Options.Years)

	view, err = svc.SetField(ctx, view.ID, filter.FieldYear, "2017")
	require.NoError(t, err)
	view, err = svc.SetField(ctx, view.ID, filter.FieldVersion, "LXR 2.0")
	require.NoError(t, err)
	assert.Equal(t, filter.StageVersionChosen, view.Stage)
	require.NotNil(t, view.Price)
	assert.Equal(t, "014072-2", view.Price.PriceCode)

	_, err = svc.SetField(ctx, view.ID, filter.FieldModel, "honda-fit")
	assert.ErrorIs(t, err, filter.ErrUnknownOption)

	view, err = svc.Reset(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, filter.StageEmpty, view.Stage)

	svc.Delete(view.ID)
	_, err = svc.Get(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFilterSessionUnknownID(t *testing.T) {
	svc := NewFilterSessionService(newTestCatalog(t, nil), time.Minute)

	_, err := svc.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
