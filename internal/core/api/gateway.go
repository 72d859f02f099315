// Package api is the only HTTP boundary of the client. It attaches the
// credential, classifies failures and supports cancellation; it never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/neilberkman/eqviz/internal/core/logger"
)

// Credentials is the read side of the credential store
type Credentials interface {
	Get() (string, bool)
}

// ProgressFunc observes upload bytes. sent never exceeds total.
type ProgressFunc func(sent, total int64)

// Upload is a single-file multipart body
type Upload struct {
	Field    string // form field name, "file" when empty
	Filename string
	Content  []byte
}

// Request describes one call to the backend
type Request struct {
	Method     string
	Path       string
	JSON       any     // encoded as the request body when non-nil
	Upload     *Upload // multipart body; takes precedence over JSON
	OnProgress ProgressFunc
}

// Response is a successful (2xx) reply
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Gateway sends requests to the analysis service
type Gateway struct {
	baseURL string
	client  *http.Client
	creds   Credentials
	scheme  string
}

type Option func(*Gateway)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithAuthScheme sets the Authorization scheme ("Token" by default)
func WithAuthScheme(scheme string) Option {
	return func(g *Gateway) {
		if scheme != "" {
			g.scheme = scheme
		}
	}
}

func New(baseURL string, creds Credentials, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		creds:   creds,
		scheme:  "Token",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BaseURL returns the service root this gateway talks to
func (g *Gateway) BaseURL() string { return g.baseURL }

// Do sends req. Failures come back as *Error, or ErrCanceled when ctx was
// cancelled; once ctx is done OnProgress is not called again.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", req.Method, req.Path, err)
	}

	var reader io.Reader
	var pr *progressReader
	if body != nil {
		reader = bytes.NewReader(body)
		if req.OnProgress != nil {
			pr = &progressReader{ctx: ctx, r: reader, total: int64(len(body)), fn: req.OnProgress}
			reader = pr
		}
	}
	// Late reads by the transport must not report progress after Do returns
	defer func() {
		if pr != nil {
			pr.stopped.Store(true)
		}
	}()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, g.baseURL+req.Path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		httpReq.ContentLength = int64(len(body))
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	// Read per request; the gateway never keeps a copy
	if token, ok := g.creds.Get(); ok {
		httpReq.Header.Set("Authorization", g.scheme+" "+token)
	}

	logger.Debug("api.request", "method", req.Method, "path", req.Path, "request_id", requestID)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrCanceled)
		}
		logger.Warn("api.unreachable", "method", req.Method, "path", req.Path, "error", err)
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrCanceled)
	}
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := classify(resp.StatusCode, data)
		logger.Info("api.failed", "method", req.Method, "path", req.Path,
			"status", resp.StatusCode, "kind", apiErr.Kind.String(), "request_id", requestID)
		return nil, apiErr
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// DoJSON sends req and decodes a successful body into out (when non-nil)
func (g *Gateway) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{Kind: KindServer, Status: resp.Status, Message: "malformed response", Err: err}
	}
	return nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.Upload != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		field := req.Upload.Field
		if field == "" {
			field = "file"
		}
		part, err := w.CreateFormFile(field, req.Upload.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(req.Upload.Content); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	}
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
	return nil, "", nil
}

// progressReader reports bytes as the transport consumes the body
type progressReader struct {
	ctx     context.Context
	r       io.Reader
	sent    int64
	total   int64
	fn      ProgressFunc
	stopped atomic.Bool
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.ctx.Err() == nil && !p.stopped.Load() {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
