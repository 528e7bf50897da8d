package services

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMissingConfiguration marks a connector whose credentials or
	// configuration are absent. Callers skip the connector.
	ErrMissingConfiguration = errors.New("missing configuration")

	// ErrUpstreamFetch marks a failed page, batch or token call. The
	// connector's run is aborted.
	ErrUpstreamFetch = errors.New("upstream fetch failure")
)

// UpstreamError describes a failed upstream call. StatusCode is 0 when the
// request never got a response.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	var sb strings.Builder

	sb.WriteString(ErrUpstreamFetch.Error())
	sb.WriteString(": ")
	sb.WriteString(e.Endpoint)

	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	}

	if e.Body != "" {
		fmt.Fprintf(&sb, ": %s", e.Body)
	}

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %s", e.Err)
	}

	return sb.String()
}

// Is makes errors.Is(err, ErrUpstreamFetch) hold for every UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamFetch
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NotConfigured builds the skip signal for a connector lacking settings.
func NotConfigured(connector string, missing ...string) error {
	if len(missing) == 0 {
		return errors.Wrap(ErrMissingConfiguration, connector)
	}

	return errors.Wrapf(ErrMissingConfiguration, "%s: %s not set", connector, strings.Join(missing, ", "))
}

// IsNotConfigured reports whether err is a skip signal.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrMissingConfiguration)
}
