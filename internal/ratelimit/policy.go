package ratelimit

import (
	"fmt"
	"time"
)

// Service names, one per external adapter.
const (
	ServiceTextGeneration      = "text_generation"
	ServiceTextToSpeech        = "text_to_speech"
	ServiceTranslation         = "translation"
	ServiceDocumentExtraction  = "document_extraction"
	ServiceImageClassification = "image_classification"
	ServiceImageGeneration     = "image_generation"
	ServiceImageDescription    = "image_description"
)

// Policy holds the tuning constants of one service's limiter.
type Policy struct {
	Service                string
	BaseDelay              time.Duration
	MaxDelay               time.Duration
	JitterFactor           float64
	MaxAttempts            int
	MaxConsecutiveFailures int
	RetryableErrors        []string
}

// Validate rejects policies that cannot produce sane delays.
func (p Policy) Validate() error {
	switch {
	case p.BaseDelay < 0:
		return fmt.Errorf("ratelimit %s: base delay must not be negative", p.Service)
	case p.MaxDelay < p.BaseDelay:
		return fmt.Errorf("ratelimit %s: max delay %s below base delay %s", p.Service, p.MaxDelay, p.BaseDelay)
	case p.JitterFactor < 0 || p.JitterFactor > 1:
		return fmt.Errorf("ratelimit %s: jitter factor must be within [0,1]", p.Service)
	case p.MaxAttempts < 1:
		return fmt.Errorf("ratelimit %s: max attempts must be at least 1", p.Service)
	}
	return nil
}

// transient HTTP statuses shared by every HTTP-backed service.
var httpTransient = []string{"408", "429", "500", "502", "503", "504"}

func withHTTP(codes ...string) []string {
	return append(append([]string(nil), codes...), httpTransient...)
}

// DefaultPolicies returns the built-in policy of every service. The map is
// freshly allocated on each call.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ServiceTextGeneration: {
			Service:                ServiceTextGeneration,
			BaseDelay:              1 * time.Second,
			MaxDelay:               30 * time.Second,
			JitterFactor:           0.2,
			MaxAttempts:            3,
			MaxConsecutiveFailures: 5,
			RetryableErrors:        withHTTP("rate_limit_exceeded", "server_error", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "DEADLINE_EXCEEDED", "INTERNAL"),
		},
		ServiceTextToSpeech: {
			Service:                ServiceTextToSpeech,
			BaseDelay:              500 * time.Millisecond,
			MaxDelay:               10 * time.Second,
			JitterFactor:           0.1,
			MaxAttempts:            3,
			MaxConsecutiveFailures: 5,
			RetryableErrors:        withHTTP("ThrottlingException", "ServiceFailureException", "ServiceUnavailableException"),
		},
		ServiceTranslation: {
			Service:                ServiceTranslation,
			BaseDelay:              200 * time.Millisecond,
			MaxDelay:               5 * time.Second,
			JitterFactor:           0.1,
			MaxAttempts:            4,
			MaxConsecutiveFailures: 5,
			RetryableErrors:        withHTTP("ThrottlingException", "TooManyRequestsException", "InternalServerException", "ServiceUnavailableException"),
		},
		ServiceDocumentExtraction: {
			Service:                ServiceDocumentExtraction,
			BaseDelay:              1 * time.Second,
			MaxDelay:               20 * time.Second,
			JitterFactor:           0.25,
			MaxAttempts:            3,
			MaxConsecutiveFailures: 4,
			RetryableErrors:        withHTTP("ProvisionedThroughputExceededException", "ThrottlingException", "InternalServerError"),
		},
		ServiceImageClassification: {
			Service:                ServiceImageClassification,
			BaseDelay:              300 * time.Millisecond,
			MaxDelay:               8 * time.Second,
			JitterFactor:           0.2,
			MaxAttempts:            3,
			MaxConsecutiveFailures: 5,
			RetryableErrors:        withHTTP("ThrottlingException", "ProvisionedThroughputExceededException", "InternalServerError"),
		},
		ServiceImageGeneration: {
			Service:                ServiceImageGeneration,
			BaseDelay:              2 * time.Second,
			MaxDelay:               60 * time.Second,
			JitterFactor:           0.3,
			MaxAttempts:            4,
			MaxConsecutiveFailures: 6,
			RetryableErrors:        withHTTP("Throttling", "Throttling.RateQuota", "Throttling.AllocationQuota", "InternalError", "ServiceUnavailable", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "DEADLINE_EXCEEDED"),
		},
		ServiceImageDescription: {
			Service:                ServiceImageDescription,
			BaseDelay:              1 * time.Second,
			MaxDelay:               20 * time.Second,
			JitterFactor:           0.2,
			MaxAttempts:            3,
			MaxConsecutiveFailures: 5,
			RetryableErrors:        withHTTP("ThrottlingException", "ModelNotReadyException", "ServiceUnavailableException"),
		},
	}
}
