package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovitrine/precos/internal/fipe"
)

type fakeLister struct {
	mu         sync.Mutex
	brandCalls int
	modelCalls map[string]int
}

func (f *fakeLister) ListBrands(_ context.Context, vehicleType string) ([]fipe.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brandCalls++
	switch vehicleType {
	case "", fipe.VehicleCars:
		return []fipe.Brand{{Code: "honda"}, {Code: "fiat"}}, nil
	case fipe.VehicleBikes:
		return []fipe.Brand{{Code: "yamaha"}}, nil
	}
	return nil, errors.New("boom")
}

func (f *fakeLister) ListModels(_ context.Context, brandCode string) ([]fipe.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modelCalls == nil {
		f.modelCalls = make(map[string]int)
	}
	f.modelCalls[brandCode]++
	if brandCode == "fiat" {
		return nil, errors.New("timeout")
	}
	return []fipe.Model{{Code: brandCode + "-a"}, {Code: brandCode + "-b"}}, nil
}

func (f *fakeLister) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brandCalls
}

func TestCatalogWarmerWarm(t *testing.T) {
	lister := &fakeLister{}
	brands, models := NewCatalogWarmer(lister).Warm(context.Background())

	assert.Equal(t, 3, brands)
	assert.Equal(t, 4, models)
	assert.Equal(t, 4, lister.brandCalls)
	assert.Equal(t, map[string]int{"honda": 1, "fiat": 1, "yamaha": 1}, lister.modelCalls)
}

func TestCatalogWarmerTrigger(t *testing.T) {
	lister := &fakeLister{}
	w := NewCatalogWarmer(lister)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.Eventually(t, func() bool { return lister.calls() == 4 }, time.Second, 5*time.Millisecond)

	w.Trigger()
	require.Eventually(t, func() bool { return lister.calls() == 8 }, time.Second, 5*time.Millisecond)
}
