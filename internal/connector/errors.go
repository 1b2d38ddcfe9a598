package connector

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/omniverse/omnimarket/pkg/httpclient"
)

// Boundary taxonomy. Every error leaving a connector wraps one of these (or
// *schema.ValidationError); the HTTP layer classifies with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrProviderAuth        = errors.New("provider credential rejected")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrBadRequest          = errors.New("bad request")
)

// Classify folds an upstream status code into the taxonomy: 401/403 means the
// configured credential was rejected, 404 means the resource does not exist,
// 400 means we built a request the provider refused. Other statuses, and
// errors that carry no status at all, pass through unchanged.
func Classify(err error) error {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return err
	}

	switch se.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrProviderAuth, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return err
}
