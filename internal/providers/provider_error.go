package providers

import (
	"fmt"
)

// ProviderError is a failed call to an upstream service.
type ProviderError struct {
	Code    string
	Status  int
	Message string
	Details string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
