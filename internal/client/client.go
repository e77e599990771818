// Package client implements the stateless HTTP executor for the remote API.
//
// It turns a (method, path, body, bearer) tuple into a decoded response or a
// classified failure; it holds no session or collection state of its own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/RamanVasko/freshkeep/internal/errs"
)

// CallTimeout bounds every remote call. A timeout surfaces as a
// network-unavailable failure, not a distinct state.
const CallTimeout = 10 * time.Second

// APIPrefix is the versioned path prefix of all endpoints.
const APIPrefix = "/api/v1"

// Client executes requests against a single base URL.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New constructs a client for the given base URL (scheme://host[:port]).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: CallTimeout},
	}
}

// errorBody is the failure payload shape: a detail message when available.
type errorBody struct {
	Detail string `json:"detail"`
}

// Do sends a JSON request and decodes a JSON response into out (out may be
// nil for responses without a useful body). A non-nil error is always an
// *errs.Error.
func (c *Client) Do(ctx context.Context, method, path, bearer string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.KindUnknown, "encode request", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+APIPrefix+path, rd)
	if err != nil {
		return errs.Wrap(errs.KindUnknown, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, bearer, out)
}

// DoMultipart sends a multipart/form-data request with string fields and an
// optional file part, used for create/update with an attached image.
func (c *Client) DoMultipart(ctx context.Context, method, path, bearer string, fields map[string]string, fileName string, file []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return errs.Wrap(errs.KindUnknown, "encode form field", err)
		}
	}
	if len(file) > 0 {
		fw, err := w.CreateFormFile("image", fileName)
		if err != nil {
			return errs.Wrap(errs.KindUnknown, "encode form file", err)
		}
		if _, err := fw.Write(file); err != nil {
			return errs.Wrap(errs.KindUnknown, "encode form file", err)
		}
	}
	if err := w.Close(); err != nil {
		return errs.Wrap(errs.KindUnknown, "finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+APIPrefix+path, &buf)
	if err != nil {
		return errs.Wrap(errs.KindUnknown, "build request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, bearer, out)
}

func (c *Client) send(req *http.Request, bearer string, out any) error {
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetworkUnavailable, "server unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return classify(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.KindUnknown, "decode response", err)
	}
	return nil
}

// classify maps an HTTP failure status to the error taxonomy, preferring the
// server-supplied detail message over the generic status text.
func classify(resp *http.Response) error {
	detail := ""
	var eb errorBody
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		if jsonErr := json.Unmarshal(b, &eb); jsonErr == nil {
			detail = eb.Detail
		}
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	kind := errs.KindUnknown
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = errs.KindUnauthenticated
	case resp.StatusCode == http.StatusNotFound:
		kind = errs.KindNotFound
	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnprocessableEntity ||
		resp.StatusCode == http.StatusConflict:
		kind = errs.KindValidation
	case resp.StatusCode >= 500:
		kind = errs.KindServer
	}
	e := errs.New(kind, detail)
	e.Status = resp.StatusCode
	return e
}

