// internal/errors/envelope.go
package errors

import "time"

// Envelope is the JSON body returned for every non-2xx API response,
// matching the error envelope the HTTP surface contracts on.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// StatusCodeFor maps a Kind to the HTTP status the API surfaces for it.
func StatusCodeFor(k Kind) int {
	switch k {
	case KindValidation, KindParse:
		return 422
	case KindConfiguration:
		return 500
	case KindAntiBot:
		return 429
	case KindStorage, KindScheduler:
		return 503
	case KindTransientNetwork:
		return 502
	default:
		return 500
	}
}

// ToEnvelope builds the API error envelope for a HarvesterError, falling
// back to a generic internal error for anything else so the API never
// leaks a bare Go error string to clients.
func ToEnvelope(err error, verbose bool) Envelope {
	he, ok := As(err)
	if !ok {
		he = Wrap(KindUnknown, "", err)
	}

	message := "an internal error occurred"
	if verbose || he.Kind != KindUnknown {
		message = he.Message
	}

	return Envelope{Error: EnvelopeBody{
		Code:       he.Kind.APICode(),
		Message:    message,
		StatusCode: StatusCodeFor(he.Kind),
		Details:    he.Details,
		Timestamp:  he.Timestamp.Format(time.RFC3339),
	}}
}
