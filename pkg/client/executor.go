package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sat-catalog-client/pkg/endpoint"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errCallTimeout is the cancellation cause set by the executor's own timer.
var errCallTimeout = errors.New("origin call exceeded its timeout")

// RequestSpec describes one origin call independent of the origin it is sent to.
type RequestSpec struct {
	Method string
	Path   string
	Query  url.Values

	// Lookup marks a single-record read; a 404 then means "no such record".
	Lookup bool
}

// ExecOptions bounds one origin call.
type ExecOptions struct {
	// Timeout aborts the call as ErrorClassTimeout; 0 means no timeout.
	Timeout time.Duration
}

// Executor performs exactly one HTTP call per Execute and trips the
// selector's failover when the primary misbehaves.
type Executor struct {
	httpClient *http.Client
	selector   *endpoint.Selector
	userAgent  string
	logger     zerolog.Logger
}

// NewExecutor creates an executor that resolves origins through selector.
func NewExecutor(httpClient *http.Client, selector *endpoint.Selector, userAgent string, logger zerolog.Logger) *Executor {
	return &Executor{
		httpClient: httpClient,
		selector:   selector,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Execute sends spec to origin and returns the body of a 2xx response.
// Cancelling ctx yields ErrorClassCancelled; it never counts as an origin failure.
func (e *Executor) Execute(ctx context.Context, origin endpoint.Origin, spec RequestSpec, opts ExecOptions) ([]byte, error) {
	requestID := uuid.NewString()
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(string(origin)).Observe(time.Since(startTime).Seconds())
	}()

	callCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeoutCause(ctx, opts.Timeout, errCallTimeout)
		defer cancel()
	}

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	target := e.selector.BaseURL(origin) + "/" + strings.TrimLeft(spec.Path, "/")
	if len(spec.Query) > 0 {
		target += "?" + spec.Query.Encode()
	}

	req, err := http.NewRequestWithContext(callCtx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	e.logger.Debug().
		Str("origin", string(origin)).
		Str("method", method).
		Str("url", target).
		Str("request_id", requestID).
		Dur("timeout", opts.Timeout).
		Msg("Executing origin request")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, e.fail(ctx, callCtx, origin, requestID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && spec.Lookup {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		requestsTotal.WithLabelValues(string(origin), "404").Inc()
		return nil, &RequestError{
			Class:      ErrorClassNotFound,
			Origin:     origin,
			StatusCode: resp.StatusCode,
			Message:    spec.Path,
			RequestID:  requestID,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		requestsTotal.WithLabelValues(string(origin), strconv.Itoa(resp.StatusCode)).Inc()
		return nil, e.record(&RequestError{
			Class:      ErrorClassRemote,
			Origin:     origin,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			RequestID:  requestID,
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.fail(ctx, callCtx, origin, requestID, fmt.Errorf("read response body: %w", err))
	}

	requestsTotal.WithLabelValues(string(origin), strconv.Itoa(resp.StatusCode)).Inc()
	e.logger.Debug().
		Str("origin", string(origin)).
		Str("request_id", requestID).
		Int("status_code", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Origin request succeeded")

	return body, nil
}

// fail classifies a transport-level failure and records it.
func (e *Executor) fail(parent, call context.Context, origin endpoint.Origin, requestID string, err error) error {
	class := classifyFailure(parent, call, origin, err)
	requestsTotal.WithLabelValues(string(origin), string(class)).Inc()

	return e.record(&RequestError{
		Class:     class,
		Origin:    origin,
		RequestID: requestID,
		Err:       err,
	})
}

// record counts and logs reqErr and trips failover when it is a primary fault.
func (e *Executor) record(reqErr *RequestError) error {
	if reqErr.Class == ErrorClassCancelled {
		e.logger.Debug().
			Str("origin", string(reqErr.Origin)).
			Str("request_id", reqErr.RequestID).
			Msg("Origin request cancelled by caller")
		return reqErr
	}

	errorsTotal.WithLabelValues(string(reqErr.Class)).Inc()
	e.logger.Warn().
		Err(reqErr.Err).
		Str("origin", string(reqErr.Origin)).
		Str("request_id", reqErr.RequestID).
		Int("status_code", reqErr.StatusCode).
		Str("error_class", string(reqErr.Class)).
		Msg("Origin request failed")

	if reqErr.Origin == endpoint.Primary && ShouldFailover(reqErr.Class) {
		e.selector.RecordFailure(endpoint.Primary, reqErr)
	}
	return reqErr
}

// classifyFailure separates the caller's cancellation from the executor's
// own timeout and from plain network errors. Only primary calls time out;
// a network timeout against the secondary is a transport failure.
func classifyFailure(parent, call context.Context, origin endpoint.Origin, err error) ErrorClass {
	if parent.Err() != nil {
		return ErrorClassCancelled
	}
	if origin != endpoint.Primary {
		return ErrorClassTransport
	}
	if errors.Is(context.Cause(call), errCallTimeout) {
		return ErrorClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassTransport
}
