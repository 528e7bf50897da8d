package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dselans/music-catalog/clog"
	"github.com/dselans/music-catalog/services"
)

const (
	// MaxErrorBodyBytes caps how much of a failed response is kept.
	MaxErrorBodyBytes = 4096

	redacted = "REDACTED"
)

// secretParams are query parameters never written to logs or errors.
var secretParams = []string{"key", "api_key", "access_token", "client_secret"}

type loggerCtxKey struct{}

// Error is a helper log func that will log an error to NewRelic and to a custom
// logger. All fields can be nil.
//
// Examples:
//
// Error(nil, nil, "", nil) -- will return nil
// Error(txn, nil, "foo", nil) -- will notice errors.New("foo")
// Error(txn, logger, "foo", errors.New("bar")) -- will log "Foo: bar" to logger and NR + return "foo: bar"
func Error(txn *newrelic.Transaction, log clog.ICustomLog, msg string, err error, fields ...zap.Field) error {
	switch {
	case err == nil && msg == "":
		return nil
	case err != nil && msg != "":
		err = errors.Wrap(err, msg)
	case err == nil:
		err = errors.New(msg)
	}

	if txn != nil {
		txn.NoticeError(err)
	}

	if log != nil {
		log.Error(CapitalizeFirstChar(err.Error()), fields...)
	}

	return err
}

func CapitalizeFirstChar(s string) string {
	if len(s) == 0 {
		return s
	}

	return strings.ToUpper(string(s[0])) + s[1:]
}

// WithLogger stores a logger in ctx for MethodSetup to find.
func WithLogger(ctx context.Context, log clog.ICustomLog) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, log)
}

// MethodSetup extracts the NewRelic txn and logger carried by ctx. Without a
// logger in ctx the fallback is used, and without a fallback a no-op logger.
// The returned txn may be nil; NewRelic handles calls on nil transactions.
func MethodSetup(ctx context.Context, fallbackLogger clog.ICustomLog, fields ...zap.Field) (*newrelic.Transaction, clog.ICustomLog) {
	if ctx == nil {
		ctx = context.Background()
	}

	txn := newrelic.FromContext(ctx)

	logger, ok := ctx.Value(loggerCtxKey{}).(clog.ICustomLog)
	if !ok {
		logger = fallbackLogger
	}

	if logger == nil {
		logger = clog.New(nil)
	}

	return txn, logger.With(fields...)
}

// DoHTTP performs a request and returns the response body. A transport
// failure or non-2xx status is returned as *services.UpstreamError carrying
// the redacted endpoint and status. When target is non-nil the body is JSON
// decoded into it.
func DoHTTP(
	ctx context.Context,
	client *http.Client,
	method,
	endpoint string,
	requestBody []byte,
	target any,
	header ...http.Header,
) ([]byte, error) {
	txn, logger := MethodSetup(ctx, nil, zap.String("method", "DoHTTP"))
	segment := txn.StartSegment("util.DoHTTP")
	defer segment.End()

	if client == nil {
		return nil, errors.New("http client cannot be nil")
	}

	if target != nil && reflect.ValueOf(target).Kind() != reflect.Ptr {
		return nil, errors.New("target must be a pointer")
	}

	safeEndpoint := RedactURL(endpoint)

	logger = logger.With(
		zap.String("httpEndpoint", safeEndpoint),
		zap.String("httpMethod", method),
	)

	logger.Debug("Performing HTTP request")

	txn.AddAttribute("httpEndpoint", safeEndpoint)
	txn.AddAttribute("httpMethod", method)

	var body io.Reader
	if requestBody != nil {
		body = bytes.NewReader(requestBody)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}

	for _, h := range header {
		for k, values := range h {
			for _, v := range values {
				request.Header.Add(k, v)
			}
		}
	}

	resp, err := client.Do(request)
	if err != nil {
		return nil, &services.UpstreamError{Endpoint: safeEndpoint, Err: redactError(err)}
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &services.UpstreamError{
			Endpoint:   safeEndpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.Wrap(err, "unable to read response body"),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &services.UpstreamError{
			Endpoint:   safeEndpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(respBody)), MaxErrorBodyBytes),
		}
	}

	if target == nil {
		return respBody, nil
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return nil, &services.UpstreamError{
			Endpoint:   safeEndpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.Wrap(err, "failed to unmarshal response body"),
		}
	}

	return respBody, nil
}

// RedactURL replaces credential query parameters so the URL can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	changed := false

	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, redacted)
			changed = true
		}
	}

	if !changed {
		return raw
	}

	u.RawQuery = q.Encode()

	return u.String()
}

// redactError strips the URL embedded in *url.Error messages.
func redactError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s %s: %w", uerr.Op, RedactURL(uerr.URL), uerr.Err)
	}

	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
