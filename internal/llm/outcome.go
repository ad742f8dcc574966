package llm

import (
	"fmt"

	"github.com/felixgeelhaar/concierge/internal/domain"
)

// OutcomeKind classifies the result of a dispatch
type OutcomeKind string

const (
	KindSuccess            OutcomeKind = "success"
	KindMissingAPIKey      OutcomeKind = "missing_api_key"
	KindValidation         OutcomeKind = "validation_error"
	KindUnknownProvider    OutcomeKind = "unknown_provider"
	KindInvalidCredentials OutcomeKind = "invalid_credentials"
	KindRequestFailed      OutcomeKind = "request_failed"
	KindNetworkError       OutcomeKind = "network_error"
)

// FieldAPIURL marks a validation failure caused by the configured endpoint
const FieldAPIURL = "apiUrl"

// EmptyReply is returned as the success text when the provider answered
// without any content.
const EmptyReply = "(empty reply)"

// Outcome is the normalized result of one dispatch. Exactly one of Text (on
// success) or the failure fields is meaningful.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Status int         `json:"status,omitempty"`
	Body   string      `json:"body,omitempty"`
	Detail string      `json:"detail,omitempty"`
	Field  string      `json:"field,omitempty"`
}

// Success builds a successful outcome
func Success(text string) Outcome {
	return Outcome{Kind: KindSuccess, Text: text}
}

// Failure builds a failed outcome
func Failure(kind OutcomeKind, detail string) Outcome {
	return Outcome{Kind: kind, Detail: detail}
}

// InvalidEndpoint builds the validation failure for an unusable api url
func InvalidEndpoint(detail string) Outcome {
	return Outcome{Kind: KindValidation, Detail: detail, Field: FieldAPIURL}
}

// RequestFailed builds the outcome for a non-2xx, non-401 response
func RequestFailed(status int, body string) Outcome {
	return Outcome{
		Kind:   KindRequestFailed,
		Status: status,
		Body:   body,
		Detail: fmt.Sprintf("status %d", status),
	}
}

// OK reports whether the dispatch succeeded
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Err maps a failed outcome to its domain error, nil on success
func (o Outcome) Err() error {
	var base error
	switch o.Kind {
	case KindSuccess:
		return nil
	case KindMissingAPIKey:
		base = domain.ErrMissingAPIKey
	case KindValidation:
		base = domain.ErrValidation
	case KindUnknownProvider:
		base = domain.ErrUnknownProvider
	case KindInvalidCredentials:
		base = domain.ErrInvalidCredentials
	case KindRequestFailed:
		base = domain.ErrRequestFailed
	default:
		base = domain.ErrNetwork
	}
	if o.Detail == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, o.Detail)
}
