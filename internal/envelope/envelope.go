// Package envelope defines the JSON wrapper every API response uses.
package envelope

import (
	"errors"
	"net/http"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/schema"
)

// Code names a failure class for API clients.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeUnknownProvider     Code = "unknown_provider"
	CodeBadRequest          Code = "bad_request"
	CodeSchemaValidation    Code = "schema_validation"
	CodeProviderAuth        Code = "provider_auth"
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	CodeInternal            Code = "internal"
)

// Envelope is the uniform response wrapper. Failures carry an error
// descriptor under meta and a null data field; successes never carry the
// descriptor. Both invariants hold by construction: Success and Failure are
// the only ways to build one.
type Envelope struct {
	OK   bool           `json:"ok"`
	Meta map[string]any `json:"meta"`
	Data any            `json:"data"`
}

func Success(data any, meta map[string]any) Envelope {
	if meta == nil {
		meta = map[string]any{}
	}
	return Envelope{OK: true, Meta: meta, Data: data}
}

func Failure(code Code, msg string, meta map[string]any) Envelope {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["error"] = map[string]any{"code": string(code), "message": msg}
	return Envelope{OK: false, Meta: meta, Data: nil}
}

// FromError folds a connector error into an HTTP status and a failure
// envelope. Broken upstream data reads as a server-side fault, so schema
// validation lands on 500 alongside auth and availability problems; only
// caller mistakes land on 400.
func FromError(err error, meta map[string]any) (int, Envelope) {
	var verr *schema.ValidationError

	switch {
	case errors.Is(err, connector.ErrNotFound):
		return http.StatusNotFound, Failure(CodeNotFound, err.Error(), meta)
	case errors.Is(err, connector.ErrUnknownProvider):
		return http.StatusBadRequest, Failure(CodeUnknownProvider, err.Error(), meta)
	case errors.Is(err, connector.ErrBadRequest):
		return http.StatusBadRequest, Failure(CodeBadRequest, err.Error(), meta)
	case errors.As(err, &verr):
		return http.StatusInternalServerError, Failure(CodeSchemaValidation, err.Error(), meta)
	case errors.Is(err, connector.ErrProviderAuth):
		return http.StatusInternalServerError, Failure(CodeProviderAuth, err.Error(), meta)
	case errors.Is(err, connector.ErrUpstreamUnavailable):
		return http.StatusInternalServerError, Failure(CodeUpstreamUnavailable, err.Error(), meta)
	}
	return http.StatusInternalServerError, Failure(CodeInternal, err.Error(), meta)
}
