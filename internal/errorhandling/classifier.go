package errorhandling

// ErrorClassifier classifies infrastructure error codes (storage, NATS,
// Redis) as retryable or not — a separate concern from the spec §7
// input/structural/runtime/cancellation taxonomy in propagation.go,
// which only applies to errors from the simulation core itself.
type ErrorClassifier struct {
	retryableErrors map[string]bool
}

// NewErrorClassifier creates a new error classifier with a default set
// of retryable infrastructure error codes.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{
		retryableErrors: map[string]bool{
			"timeout":             true,
			"connection_refused":  true,
			"temporary":           true,
			"rate_limit":          true,
			"service_unavailable": true,
			"network":             true,
		},
	}
}

// IsRetryable determines if an error code is retryable.
func (ec *ErrorClassifier) IsRetryable(errorCode string) bool {
	return ec.retryableErrors[errorCode]
}

// AddRetryableError adds an error code to the retryable list.
func (ec *ErrorClassifier) AddRetryableError(errorCode string) {
	ec.retryableErrors[errorCode] = true
}

// RemoveRetryableError removes an error code from the retryable list.
func (ec *ErrorClassifier) RemoveRetryableError(errorCode string) {
	delete(ec.retryableErrors, errorCode)
}
