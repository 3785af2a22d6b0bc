package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Request is an inbound request with its body read into memory so it can
// be sent more than once.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// NewRequest buffers r. maxBody caps the body size; zero or less means no
// cap. A body over the cap yields ErrBodyTooLarge.
func NewRequest(r *http.Request, maxBody int64) (*Request, error) {
	req := &Request{
		Method:   r.Method,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	if maxBody > 0 && r.ContentLength > maxBody {
		return nil, ErrBodyTooLarge
	}

	var reader io.Reader = r.Body
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, ErrBodyTooLarge
	}
	req.Body = body
	return req, nil
}

// TargetURL joins base with the request path and query. An empty path
// becomes "/".
func (r *Request) TargetURL(base string) string {
	path := r.Path
	if path == "" {
		path = "/"
	}
	u := base + path
	if r.RawQuery != "" {
		u += "?" + r.RawQuery
	}
	return u
}

// outboundHeader copies every inbound header except Host.
func (r *Request) outboundHeader() http.Header {
	h := r.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Del("Host")
	return h
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
