package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"autovitrine/precos/internal/constants"
	"autovitrine/precos/internal/filter"
	"autovitrine/precos/internal/fipe"
)

// FipeAPIProvider reads the public /api/fipe endpoints of a running server.
// It is the option source of client-side filter machines.
type FipeAPIProvider struct {
	BaseURL     string
	VehicleType string
	Client      *http.Client
}

var _ filter.OptionSource = (*FipeAPIProvider)(nil)

// NewFipeAPIProvider creates a provider for the server at baseURL.
func NewFipeAPIProvider(baseURL, vehicleType string) *FipeAPIProvider {
	return &FipeAPIProvider{
		BaseURL:     baseURL,
		VehicleType: vehicleType,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *FipeAPIProvider) ListBrands(ctx context.Context) ([]fipe.Brand, error) {
	q := url.Values{}
	if p.VehicleType != "" {
		q.Set("veiculo", p.VehicleType)
	}
	var brands []fipe.Brand
	if err := p.doGET(ctx, "/api/fipe/marcas", q, &brands); err != nil {
		return nil, err
	}
	return brands, nil
}

func (p *FipeAPIProvider) ListModels(ctx context.Context, brandCode string) ([]fipe.Model, error) {
	q := url.Values{"marca": {brandCode}}
	var models []fipe.Model
	if err := p.doGET(ctx, "/api/fipe/modelos", q, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (p *FipeAPIProvider) ListYears(ctx context.Context, brandCode, modelCode string) ([]int, error) {
	q := url.Values{"marca": {brandCode}, "modelo": {modelCode}}
	var years []int
	if err := p.doGET(ctx, "/api/fipe/anos", q, &years); err != nil {
		return nil, err
	}
	return years, nil
}

func (p *FipeAPIProvider) ListVersions(ctx context.Context, brandCode, modelCode string, year int) ([]fipe.PriceVersion, error) {
	q := url.Values{"marca": {brandCode}, "modelo": {modelCode}, "ano": {strconv.Itoa(year)}}
	var versions []fipe.PriceVersion
	if err := p.doGET(ctx, "/api/fipe/versoes", q, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (p *FipeAPIProvider) GetPrice(ctx context.Context, brandCode, modelCode string, year int, version string) (*fipe.PriceVersion, error) {
	q := url.Values{
		"marca":  {brandCode},
		"modelo": {modelCode},
		"ano":    {strconv.Itoa(year)},
		"versao": {version},
	}
	var pv fipe.PriceVersion
	if err := p.doGET(ctx, "/api/fipe/consultar", q, &pv); err != nil {
		return nil, err
	}
	return &pv, nil
}

// ReferenceMonth returns the month the server currently answers for.
func (p *FipeAPIProvider) ReferenceMonth(ctx context.Context) (string, error) {
	var body struct {
		ReferenceMonth string `json:"referenceMonth"`
	}
	if err := p.doGET(ctx, "/api/fipe/referencia", nil, &body); err != nil {
		return "", err
	}
	return body.ReferenceMonth, nil
}

// doGET performs a GET request and decodes the JSON body into result.
func (p *FipeAPIProvider) doGET(ctx context.Context, endpoint string, query url.Values, result interface{}) error {
	target := p.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Status:  resp.StatusCode,
			Message: "Failed to read response body",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.buildHTTPError(resp.StatusCode, endpoint, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeDecodeError,
			Status:  resp.StatusCode,
			Message: constants.GetErrorMessage(constants.ErrCodeDecodeError),
			Details: string(bodyBytes),
			Err:     err,
		}
	}
	return nil
}

// buildHTTPError maps a non-2xx answer to a ProviderError. A 404 wraps
// fipe.ErrNotFound.
func (p *FipeAPIProvider) buildHTTPError(statusCode int, endpoint string, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	_ = json.Unmarshal(body, &payload)
	details := payload.Error
	if details == "" {
		details = string(body)
	}

	switch {
	case statusCode == http.StatusNotFound:
		return &ProviderError{
			Code:    constants.ErrCodeResourceNotFound,
			Status:  statusCode,
			Message: fmt.Sprintf("Resource not found: %s", endpoint),
			Details: details,
			Err:     fipe.ErrNotFound,
		}
	case statusCode == http.StatusTooManyRequests:
		return &ProviderError{
			Code:    constants.ErrCodeRateLimited,
			Status:  statusCode,
			Message: constants.GetErrorMessage(constants.ErrCodeRateLimited),
			Details: details,
		}
	case statusCode >= 400 && statusCode < 500:
		return &ProviderError{
			Code:    constants.ErrCodeInvalidRequest,
			Status:  statusCode,
			Message: fmt.Sprintf("Request rejected by %s", endpoint),
			Details: details,
		}
	default:
		return &ProviderError{
			Code:    constants.ErrCodeUpstreamError,
			Status:  statusCode,
			Message: fmt.Sprintf("Upstream error %d from %s", statusCode, endpoint),
			Details: details,
		}
	}
}
