package drivers

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrBackendUnavailable is a transport failure: refused connection,
	// timeout, gateway error.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendRejected is a well formed failure answer from the backend,
	// validation error or conflict.
	ErrBackendRejected = errors.New("backend rejected request")
	// ErrNotFound means the addressed handle is unknown to the backend.
	ErrNotFound = errors.New("entity not found")
)

// IsBackendError reports whether err belongs to the driver taxonomy.
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrBackendRejected) ||
		errors.Is(err, ErrNotFound)
}

// transportError classifies a failed round trip.
func transportError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return errors.Wrapf(err, format, args...)
	}
	return errors.Wrapf(errors.Wrap(ErrBackendUnavailable, err.Error()), format, args...)
}

// statusError maps an HTTP status to the taxonomy, nil for 2xx.
func statusError(code int, body []byte, format string, args ...interface{}) error {
	if code >= 200 && code < 300 {
		return nil
	}
	var cause error
	switch code {
	case http.StatusNotFound:
		cause = ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		cause = ErrBackendUnavailable
	default:
		cause = ErrBackendRejected
	}
	msg := http.StatusText(code)
	if len(body) > 0 {
		msg = msg + ": " + truncate(string(body), 256)
	}
	return errors.Wrapf(errors.Wrap(cause, msg), format, args...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
