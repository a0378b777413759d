package candiutils

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"

	"github.com/golangid/obsbot/tracer"
)

// HTTPRequest interface
type HTTPRequest interface {
	Do(ctx context.Context, method, url string, reqBody []byte, headers map[string]string) (respBody []byte, respCode int, err error)
}

// HTTPError response with a status at or above the error threshold
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return e.Status
}

type httpRequestImpl struct {
	client            *httpclient.Client
	retries           int
	sleepBetweenRetry time.Duration
	timeout           time.Duration
	minHTTPErrorCode  int
	tlsConfig         *tls.Config
	breakerName       string
}

// HTTPRequestOption func type
type HTTPRequestOption func(*httpRequestImpl)

// HTTPRequestSetRetries option func
func HTTPRequestSetRetries(retries int) HTTPRequestOption {
	return func(h *httpRequestImpl) {
		h.retries = retries
	}
}

// HTTPRequestSetSleepBetweenRetry option func
func HTTPRequestSetSleepBetweenRetry(sleepBetweenRetry time.Duration) HTTPRequestOption {
	return func(h *httpRequestImpl) {
		h.sleepBetweenRetry = sleepBetweenRetry
	}
}

// HTTPRequestSetTimeout option func, a long poll needs a timeout above its server side timeout
func HTTPRequestSetTimeout(timeout time.Duration) HTTPRequestOption {
	return func(h *httpRequestImpl) {
		h.timeout = timeout
	}
}

// HTTPRequestSetHTTPErrorCodeThreshold option func
func HTTPRequestSetHTTPErrorCodeThreshold(minHTTPErrorCode int) HTTPRequestOption {
	return func(h *httpRequestImpl) {
		h.minHTTPErrorCode = minHTTPErrorCode
	}
}

// HTTPRequestSetTLS option func
func HTTPRequestSetTLS(tlsConfig *tls.Config) HTTPRequestOption {
	return func(h *httpRequestImpl) {
		h.tlsConfig = tlsConfig
	}
}

// HTTPRequestSetBreakerName option func, used in trace operation names
func HTTPRequestSetBreakerName(breakerName string) HTTPRequestOption {
	return func(h *httpRequestImpl) {
		h.breakerName = breakerName
	}
}

// NewHTTPRequest constructor, retries with constant backoff on 5xx and transport errors
func NewHTTPRequest(opts ...HTTPRequestOption) HTTPRequest {
	httpReq := &httpRequestImpl{
		retries:           3,
		sleepBetweenRetry: 500 * time.Millisecond,
		timeout:           10 * time.Second,
		minHTTPErrorCode:  http.StatusBadRequest,
		breakerName:       "http",
	}
	for _, opt := range opts {
		opt(httpReq)
	}

	// define a maximum jitter interval
	maximumJitterInterval := 5 * time.Millisecond
	backoff := heimdall.NewConstantBackoff(httpReq.sleepBetweenRetry, maximumJitterInterval)
	retrier := heimdall.NewRetrier(backoff)

	clientOpts := []httpclient.Option{
		httpclient.WithHTTPTimeout(httpReq.timeout),
		httpclient.WithRetrier(retrier),
		httpclient.WithRetryCount(httpReq.retries),
	}
	if httpReq.tlsConfig != nil {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(&http.Client{
			Timeout:   httpReq.timeout,
			Transport: &http.Transport{TLSClientConfig: httpReq.tlsConfig},
		}))
	}
	httpReq.client = httpclient.NewClient(clientOpts...)

	return httpReq
}

// Do function, for http client call
func (request *httpRequestImpl) Do(ctx context.Context, method, url string, requestBody []byte, headers map[string]string) (respBody []byte, respCode int, err error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, 0, err
	}

	trace := tracer.StartTrace(ctx, fmt.Sprintf("%s: %s %s%s", request.breakerName, method, req.URL.Host, req.URL.Path))
	defer func() {
		trace.SetError(err)
		trace.Finish()
	}()

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	trace.SetTag("http.method", req.Method)
	trace.SetTag("http.url", req.URL.Path)

	resp, err := request.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	trace.SetTag("response.code", resp.StatusCode)

	if resp.StatusCode >= request.minHTTPErrorCode {
		return respBody, resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: respBody}
	}
	return respBody, resp.StatusCode, nil
}
