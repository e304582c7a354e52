// Package httpclient es el cliente JSON que comparten los adapters que
// hablan con el backend (remote REST e identidad).
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

var ErrNilClient = errors.New("httpclient: nil client")

type Options struct {
	// BaseURL obligatoria; los requests usan paths relativos.
	BaseURL string
	Timeout time.Duration

	// Headers que van en todos los requests (p.ej. apikey del backend).
	// Los headers de cada Request pisan a estos.
	Headers map[string]string

	// Transport opcional (tests).
	Transport http.RoundTripper
}

// Client envuelve *http.Client contra un único backend.
type Client struct {
	http    *http.Client
	base    *url.URL
	headers http.Header
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("httpclient: base url required")
	}
	base, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpclient: unsupported scheme %q", base.Scheme)
	}
	base.Path = strings.TrimRight(base.Path, "/")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	h := make(http.Header, len(opts.Headers))
	for k, v := range opts.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		h.Set(k, v)
	}

	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: opts.Transport},
		base:    base,
		headers: h,
	}, nil
}

// Request describe una llamada. Body se serializa como JSON si no es nil.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    any
}

// HTTPError representa una respuesta no-2xx.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStatus reporta si err es un *HTTPError con alguno de los códigos dados.
func IsStatus(err error, codes ...int) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	for _, c := range codes {
		if he.StatusCode == c {
			return true
		}
	}
	return false
}

// Do ejecuta req y decodifica la respuesta en out (si out != nil y hay body).
// Cualquier status fuera de 2xx vuelve como *HTTPError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c == nil || c.http == nil {
		return ErrNilClient
	}

	u := c.resolve(req.Path, req.Query)

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("httpclient: marshal json: %w", err)
		}
		body = bytes.NewReader(b)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("httpclient: new request: %w", err)
	}

	hreq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		hreq.Header[k] = vs
	}
	for k, v := range req.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		hreq.Header.Set(k, v)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return fmt.Errorf("httpclient: %s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			Method:     method,
			Path:       u.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("httpclient: unmarshal json: %w", err)
	}
	return nil
}

func (c *Client) resolve(path string, q url.Values) *url.URL {
	u := *c.base
	path = strings.TrimSpace(path)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return &u
}
