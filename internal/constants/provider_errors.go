package constants

// Error codes reported by upstream providers.
const (
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeUpstreamError    = "UPSTREAM_ERROR"
	ErrCodeDecodeError      = "DECODE_ERROR"
)

var ProviderErrorMessages = map[string]string{
	ErrCodeNetworkError:     "Could not reach the price service. Check the base URL and try again.",
	ErrCodeRateLimited:      "The price service is rate limiting requests. Try again shortly.",
	ErrCodeInvalidRequest:   "The price service rejected the request.",
	ErrCodeResourceNotFound: "The requested brand, model, year or version was not found.",
	ErrCodeUpstreamError:    "The price service failed to answer.",
	ErrCodeDecodeError:      "The price service returned an unexpected response.",
}

func GetErrorMessage(code string) string {
	if msg, exists := ProviderErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
