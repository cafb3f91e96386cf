package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"autovitrine/precos/internal/filter"
	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
)

// DefaultSessionTTL is how long an idle filter session is kept.
const DefaultSessionTTL = 30 * time.Minute

var ErrSessionNotFound = errors.New("filter session not found")

// catalogSource adapts CatalogService to filter.OptionSource for one
// vehicle type.
type catalogSource struct {
	catalog     *CatalogService
	vehicleType string
}

func (s catalogSource) ListBrands(ctx context.Context) ([]fipe.Brand, error) {
	return s.catalog.ListBrands(ctx, s.vehicleType)
}

func (s catalogSource) ListModels(ctx context.Context, brandCode string) ([]fipe.Model, error) {
	return s.catalog.ListModels(ctx, brandCode)
}

func (s catalogSource) ListYears(ctx context.Context, brandCode, modelCode string) ([]int, error) {
	return s.catalog.ListYears(ctx, brandCode, modelCode)
}

func (s catalogSource) ListVersions(ctx context.Context, brandCode, modelCode string, year int) ([]fipe.PriceVersion, error) {
	return s.catalog.ListVersions(ctx, brandCode, modelCode, year)
}

func (s catalogSource) GetPrice(ctx context.Context, brandCode, modelCode string, year int, version string) (*fipe.PriceVersion, error) {
	return s.catalog.GetPrice(ctx, brandCode, modelCode, year, version)
}

// SessionView is a filter view tagged with its session id.
type SessionView struct {
	ID string `json:"id"`
	filter.View
}

// FilterSessionService keeps server-side filter machines for clients that do
// not run their own. Sessions expire after ttl without use.
type FilterSessionService struct {
	sessions *cache.Cache
	source   func(vehicleType string) filter.OptionSource
	ttl      time.Duration
}

func NewFilterSessionService(catalog *CatalogService, ttl time.Duration) *FilterSessionService {
	return newFilterSessionService(func(vehicleType string) filter.OptionSource {
		return catalogSource{catalog: catalog, vehicleType: vehicleType}
	}, ttl)
}

func newFilterSessionService(source func(string) filter.OptionSource, ttl time.Duration) *FilterSessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &FilterSessionService{
		sessions: cache.New(ttl, ttl/2),
		source:   source,
		ttl:      ttl,
	}
}

// Create starts a session and loads its brand list. A failed brand fetch
// still creates the session; the error shows in the view and can be retried.
func (s *FilterSessionService) Create(ctx context.Context, vehicleType string) (*SessionView, error) {
	id := uuid.New().String()
	m := filter.NewMachine(s.source(vehicleType))
	s.sessions.Set(id, m, s.ttl)

	logging.Debug("[FilterSession] Created", "session_id", id, "vehicle_type", vehicleType)
	return s.result(id, m, m.Reset(ctx))
}

// Get returns the current view of a session.
func (s *FilterSessionService) Get(id string) (*SessionView, error) {
	m, err := s.machine(id)
	if err != nil {
		return nil, err
	}
	return &SessionView{ID: id, View: m.View()}, nil
}

// SetField applies one selection to a session.
func (s *FilterSessionService) SetField(ctx context.Context, id string, field filter.Field, value string) (*SessionView, error) {
	m, err := s.machine(id)
	if err != nil {
		return nil, err
	}
	return s.result(id, m, m.SetField(ctx, field, value))
}

// Reset clears a session back to the brand list.
func (s *FilterSessionService) Reset(ctx context.Context, id string) (*SessionView, error) {
	m, err := s.machine(id)
	if err != nil {
		return nil, err
	}
	return s.result(id, m, m.Reset(ctx))
}

// Retry repeats the pending fetch of a session.
func (s *FilterSessionService) Retry(ctx context.Context, id string) (*SessionView, error) {
	m, err := s.machine(id)
	if err != nil {
		return nil, err
	}
	return s.result(id, m, m.Retry(ctx))
}

// Delete drops a session.
func (s *FilterSessionService) Delete(id string) {
	s.sessions.Delete(id)
}

func (s *FilterSessionService) machine(id string) (*filter.Machine, error) {
	v, found := s.sessions.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	m := v.(*filter.Machine)
	// Sliding expiry.
	s.sessions.Set(id, m, s.ttl)
	return m, nil
}

// result folds fetch outcomes into the view. Fetch failures and superseded
// fetches are reported through the view, not as errors.
func (s *FilterSessionService) result(id string, m *filter.Machine, err error) (*SessionView, error) {
	var fetchErr *filter.FetchError
	if err != nil && !errors.As(err, &fetchErr) && !errors.Is(err, filter.ErrSuperseded) {
		return nil, err
	}
	return &SessionView{ID: id, View: m.View()}, nil
}
