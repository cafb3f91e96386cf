package filter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrOutOfOrder    = errors.New("earlier fields must be chosen first")
	ErrUnknownOption = errors.New("value is not one of the current options")
	// ErrSuperseded is returned by a fetch whose result arrived after a
	// newer transition. The result is discarded.
	ErrSuperseded = errors.New("superseded by a newer selection")
)

// FetchError is a failed option or price fetch. It is recorded against the
// field being fetched and can be retried.
type FetchError struct {
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Target, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// OptionSource supplies the option lists and the final price.
type OptionSource interface {
	ListBrands(ctx context.Context) ([]fipe.Brand, error)
	ListModels(ctx context.Context, brandCode string) ([]fipe.Model, error)
	ListYears(ctx context.Context, brandCode, modelCode string) ([]int, error)
	ListVersions(ctx context.Context, brandCode, modelCode string, year int) ([]fipe.PriceVersion, error)
	GetPrice(ctx context.Context, brandCode, modelCode string, year int, version string) (*fipe.PriceVersion, error)
}

// State is the partial selection. A nil field is unset.
type State struct {
	Brand   *string `json:"brand"`
	Model   *string `json:"model"`
	Year    *int    `json:"year"`
	Version *string `json:"version"`
}

func (s State) isSet(f Field) bool {
	switch f {
	case FieldBrand:
		return s.Brand != nil
	case FieldModel:
		return s.Model != nil
	case FieldYear:
		return s.Year != nil
	case FieldVersion:
		return s.Version != nil
	}
	return false
}

// next is the index of the first unset field, or targetPrice when the
// selection is complete.
func (s State) next() int {
	for _, f := range Fields {
		if !s.isSet(f) {
			return int(f)
		}
	}
	return targetPrice
}

// Complete reports whether every field is chosen.
func (s State) Complete() bool { return s.next() == targetPrice }

// clearFrom unsets f and every field after it.
func (s *State) clearFrom(f Field) {
	switch f {
	case FieldBrand:
		s.Brand = nil
		fallthrough
	case FieldModel:
		s.Model = nil
		fallthrough
	case FieldYear:
		s.Year = nil
		fallthrough
	case FieldVersion:
		s.Version = nil
	}
}

// Options holds the option list of each field. A nil list has not been
// fetched for the current selection.
type Options struct {
	Brands   []fipe.Brand        `json:"brands"`
	Models   []fipe.Model        `json:"models"`
	Years    []int               `json:"years"`
	Versions []fipe.PriceVersion `json:"versions"`
}

func (o *Options) clearFrom(f Field) {
	switch f {
	case FieldBrand:
		o.Brands = nil
		fallthrough
	case FieldModel:
		o.Models = nil
		fallthrough
	case FieldYear:
		o.Years = nil
		fallthrough
	case FieldVersion:
		o.Versions = nil
	}
}

// View is an immutable snapshot of a machine.
type View struct {
	Stage   Stage              `json:"stage"`
	State   State              `json:"state"`
	Options Options            `json:"options"`
	Price   *fipe.PriceVersion `json:"price"`
	Errors  map[string]string  `json:"errors,omitempty"`
	Seq     uint64             `json:"seq"`
}

// Machine drives one selection. Transitions are serialized; fetches run
// outside the lock and only apply while their sequence is current.
type Machine struct {
	src OptionSource

	mu      sync.Mutex
	state   State
	options Options
	price   *fipe.PriceVersion
	errs    map[int]error
	seq     uint64
}

// NewMachine returns an empty machine. Call Reset to load the brand list.
func NewMachine(src OptionSource) *Machine {
	return &Machine{src: src, errs: make(map[int]error)}
}

// SetField chooses value for field. Every later field, its option list and
// the price are cleared before the next list (or the price) is fetched.
func (m *Machine) SetField(ctx context.Context, field Field, value string) error {
	m.mu.Lock()
	if field < FieldBrand || field > FieldVersion {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownField, int(field))
	}
	if int(field) > m.state.next() {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOutOfOrder, field)
	}
	if err := m.choose(field, value); err != nil {
		m.mu.Unlock()
		return err
	}
	seq, state := m.advance(int(field) + 1)
	m.mu.Unlock()

	return m.fetch(ctx, seq, state)
}

// Reset clears the selection and reloads the brand list.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	m.state = State{}
	m.options = Options{}
	seq, state := m.advance(int(FieldBrand))
	m.mu.Unlock()

	return m.fetch(ctx, seq, state)
}

// Retry re-issues the fetch for the first unset field, or the price when the
// selection is complete.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	seq, state := m.advance(m.state.next())
	m.mu.Unlock()

	return m.fetch(ctx, seq, state)
}

// View returns a snapshot of the machine.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Stage: stages[m.state.next()],
		State: State{
			Brand:   clonePtr(m.state.Brand),
			Model:   clonePtr(m.state.Model),
			Year:    clonePtr(m.state.Year),
			Version: clonePtr(m.state.Version),
		},
		Options: Options{
			Brands:   slices.Clone(m.options.Brands),
			Models:   slices.Clone(m.options.Models),
			Years:    slices.Clone(m.options.Years),
			Versions: slices.Clone(m.options.Versions),
		},
		Price: clonePtr(m.price),
		Seq:   m.seq,
	}
	if len(m.errs) > 0 {
		v.Errors = make(map[string]string, len(m.errs))
		for target, err := range m.errs {
			v.Errors[targetName(target)] = err.Error()
		}
	}
	return v
}

// choose validates value against the current options of field and stores
// it. Callers hold m.mu.
func (m *Machine) choose(field Field, value string) error {
	switch field {
	case FieldBrand:
		if !slices.ContainsFunc(m.options.Brands, func(b fipe.Brand) bool { return b.Code == value }) {
			return fmt.Errorf("%w: brand %q", ErrUnknownOption, value)
		}
		m.state.clearFrom(FieldBrand)
		m.state.Brand = &value
	case FieldModel:
		if !slices.ContainsFunc(m.options.Models, func(md fipe.Model) bool { return md.Code == value }) {
			return fmt.Errorf("%w: model %q", ErrUnknownOption, value)
		}
		m.state.clearFrom(FieldModel)
		m.state.Model = &value
	case FieldYear:
		year, err := strconv.Atoi(value)
		if err != nil || !slices.Contains(m.options.Years, year) {
			return fmt.Errorf("%w: year %q", ErrUnknownOption, value)
		}
		m.state.clearFrom(FieldYear)
		m.state.Year = &year
	case FieldVersion:
		i := slices.IndexFunc(m.options.Versions, func(pv fipe.PriceVersion) bool {
			return pv.Version == value || pv.PriceCode == value
		})
		if i < 0 {
			return fmt.Errorf("%w: version %q", ErrUnknownOption, value)
		}
		version := m.options.Versions[i].Version
		m.state.Version = &version
	}
	m.options.clearFrom(field + 1)
	return nil
}

// advance starts a transition whose fetch targets target. It drops the
// price and the errors of target and everything after it. Callers hold m.mu.
func (m *Machine) advance(target int) (uint64, State) {
	m.seq++
	m.price = nil
	for t := range m.errs {
		if t >= target {
			delete(m.errs, t)
		}
	}
	return m.seq, m.state
}

// fetch loads whatever state is waiting for and applies it if seq is still
// current.
func (m *Machine) fetch(ctx context.Context, seq uint64, state State) error {
	target := state.next()

	var (
		brands   []fipe.Brand
		models   []fipe.Model
		years    []int
		versions []fipe.PriceVersion
		price    *fipe.PriceVersion
		err      error
	)
	switch target {
	case int(FieldBrand):
		brands, err = m.src.ListBrands(ctx)
	case int(FieldModel):
		models, err = m.src.ListModels(ctx, *state.Brand)
	case int(FieldYear):
		years, err = m.src.ListYears(ctx, *state.Brand, *state.Model)
	case int(FieldVersion):
		versions, err = m.src.ListVersions(ctx, *state.Brand, *state.Model, *state.Year)
	default:
		price, err = m.src.GetPrice(ctx, *state.Brand, *state.Model, *state.Year, *state.Version)
		if errors.Is(err, fipe.ErrNotFound) {
			logging.Warn("[Filter] Complete selection did not resolve to a price",
				"brand", *state.Brand,
				"model", *state.Model,
				"year", *state.Year,
				"version", *state.Version)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.seq {
		return ErrSuperseded
	}
	if err != nil {
		m.errs[target] = err
		return &FetchError{Target: targetName(target), Err: err}
	}
	delete(m.errs, target)

	switch target {
	case int(FieldBrand):
		m.options.Brands = nonNil(brands)
	case int(FieldModel):
		m.options.Models = nonNil(models)
	case int(FieldYear):
		m.options.Years = nonNil(years)
	case int(FieldVersion):
		m.options.Versions = nonNil(versions)
	default:
		m.price = price
	}
	return nil
}

func targetName(target int) string {
	if target == targetPrice {
		return "price"
	}
	return Field(target).String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
