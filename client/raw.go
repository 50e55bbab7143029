package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	files "github.com/ipfs/go-ipfs-files"

	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

const (
	defaultMaxRetries    = 3
	defaultBackoffFactor = time.Second
	maxBackoff           = 2 * time.Minute

	maxErrorBodySize = 4096
)

var defaultRetryStatuses = []int{
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// File is a single file sent as a multipart form field named "file".
type File struct {
	Name string
	Data []byte
}

// Raw is an HTTP client for the IPFS daemon control API.
// All commands are sent as POST requests to baseURL + "/" + command.
// A single Raw (and the underlying *http.Client) is meant to be
// created once and reused for all calls.
type Raw struct {
	Logger *log.Logger

	debug         bool
	cl            *http.Client
	baseURL       string
	maxRetries    int
	backoffFactor time.Duration
	retryStatuses map[int]bool
}

// NewRaw creates a Raw client instance that talks to the API at baseURL,
// e.g. "http://127.0.0.1:5001/api/v0".
func NewRaw(cl *http.Client, baseURL string) *Raw {
	if cl == nil {
		cl = &http.Client{}
	}

	r := &Raw{
		cl:      cl,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	r.SetRetryPolicy(defaultMaxRetries, defaultBackoffFactor, defaultRetryStatuses)

	return r
}

// SetDebug either enables or disables debug logging for the client.
func (r *Raw) SetDebug(v bool) {
	r.debug = v
}

// SetRetryPolicy sets how many times a request is replayed when the
// daemon answers with one of the statuses. The n-th retry waits for
// factor * 2^(n-1).
func (r *Raw) SetRetryPolicy(maxRetries int, factor time.Duration, statuses []int) {
	r.maxRetries = maxRetries
	r.backoffFactor = factor
	r.retryStatuses = make(map[int]bool, len(statuses))
	for _, s := range statuses {
		r.retryStatuses[s] = true
	}
}

func (r *Raw) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}

	return r.Logger
}

// Call sends the command to the daemon and returns the response body.
// When file is not nil the body is multipart/form-data with the file
// and the form fields go to the query string, the way the daemon reads
// command options. Otherwise the form (if any) is url-encoded.
//
// Every error returned is an *APIError.
func (r *Raw) Call(ctx context.Context, command string, file *File, form url.Values, params url.Values) (res []byte, err error) {
	if file != nil {
		params = mergeValues(params, form)
		form = nil
	}

	callURL := r.baseURL + "/" + strings.TrimLeft(command, "/")
	if len(params) > 0 {
		callURL += "?" + params.Encode()
	}

	contentType, payload, err := encodeBody(file, form)
	if err != nil {
		return nil, &APIError{Command: command, Err: fmt.Errorf("encoding request body: %w", err)}
	}

	if r.debug {
		r.logger().Printf("Calling %s with %d bytes of %q", callURL, len(payload), contentType)
		defer func() { r.logger().Printf("Call %s returned: res=%d bytes, err=%v", callURL, len(res), err) }()
	}

	attempts := 0

	op := func() error {
		attempts++

		body, status, err := r.post(ctx, callURL, contentType, payload)
		if err != nil {
			return backoff.Permanent(&APIError{Command: command, Err: err})
		}

		if status >= 200 && status < 300 {
			res = body
			return nil
		}

		apiErr := &APIError{Command: command, StatusCode: status, Message: errorMessage(body)}
		if !r.retryStatuses[status] {
			return backoff.Permanent(apiErr)
		}

		return apiErr
	}

	notify := func(err error, wait time.Duration) {
		if r.debug {
			r.logger().Printf("Retrying %s in %v after attempt %d: %v", callURL, wait, attempts, err)
		}
	}

	err = backoff.RetryNotify(op, r.newBackOff(ctx), notify)
	if err == nil {
		return res, nil
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = &APIError{Command: command, Err: err}
	}
	apiErr.Attempts = attempts

	return nil, apiErr
}

func (r *Raw) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.backoffFactor
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)
}

func (r *Raw) post(ctx context.Context, callURL string, contentType string, payload []byte) (body []byte, status int, err error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, rd)
	if err != nil {
		return nil, 0, fmt.Errorf("creating Request: %v", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := r.cl.Do(req)
	if err != nil {
		return nil, 0, err
	}

	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response of %q: %w", callURL, err)
	}

	return body, resp.StatusCode, nil
}

func encodeBody(file *File, form url.Values) (contentType string, payload []byte, err error) {
	if file == nil {
		if len(form) == 0 {
			return "", nil, nil
		}

		return "application/x-www-form-urlencoded", []byte(form.Encode()), nil
	}

	dir := files.NewMapDirectory(map[string]files.Node{
		file.Name: files.NewBytesFile(file.Data),
	})
	mfr := files.NewMultiFileReader(dir, true)

	// The body is read once so that every retry can replay it.
	payload, err = io.ReadAll(mfr)
	if err != nil {
		return "", nil, err
	}

	return "multipart/form-data; boundary=" + mfr.Boundary(), payload, nil
}

func mergeValues(dst, src url.Values) url.Values {
	if len(src) == 0 {
		return dst
	}

	res := url.Values{}
	for _, v := range []url.Values{dst, src} {
		for k, vals := range v {
			res[k] = append(res[k], vals...)
		}
	}
	return res
}

// errorMessage extracts the message from the daemon error JSON, falling
// back to the (truncated) body itself.
func errorMessage(body []byte) string {
	var e protocol.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBodySize {
		msg = fmt.Sprintf("%s... (%d bytes total)", msg[0:maxErrorBodySize], len(msg))
	}

	return msg
}
