package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errReader fails every read.
type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestNewRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/api/users?page=2", strings.NewReader(`{"name":"ada"}`))
	r.Header.Set("Content-Type", "application/json")

	req, err := NewRequest(r, 1024)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/users", req.Path)
	assert.Equal(t, "page=2", req.RawQuery)
	assert.Equal(t, `{"name":"ada"}`, string(req.Body))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestNewRequest_NoBody(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(httptest.NewRequest(http.MethodGet, "/", nil), 10)

	require.NoError(t, err)
	assert.Empty(t, req.Body)
}

func TestNewRequest_BodyLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		max     int64
		chunked bool
		wantErr error
	}{
		{name: "at limit", body: "12345", max: 5},
		{name: "over limit with content length", body: "123456", max: 5, wantErr: ErrBodyTooLarge},
		{name: "over limit chunked", body: "123456", max: 5, chunked: true, wantErr: ErrBodyTooLarge},
		{name: "no limit", body: strings.Repeat("x", 4096), max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.chunked {
				r.ContentLength = -1
			}

			req, err := NewRequest(r, tt.max)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(req.Body))
		})
	}
}

func TestNewRequest_MaxBytesReader(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("123456"))
	r.ContentLength = -1
	r.Body = http.MaxBytesReader(rec, r.Body, 3)

	_, err := NewRequest(r, 0)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestNewRequest_ReadError(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/", errReader{})
	r.ContentLength = -1

	_, err := NewRequest(r, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBodyTooLarge)
}

func TestNewRequest_PreservesEscapedPath(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(httptest.NewRequest(http.MethodGet, "/api/users/a%2Fb", nil), 0)

	require.NoError(t, err)
	assert.Equal(t, "/api/users/a%2Fb", req.Path)
}

func TestRequest_TargetURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{name: "path", req: Request{Path: "/api/users"}, want: "http://h:1/api/users"},
		{name: "query", req: Request{Path: "/p", RawQuery: "a=1&b=2"}, want: "http://h:1/p?a=1&b=2"},
		{name: "empty path", req: Request{}, want: "http://h:1/"},
		{name: "empty path with query", req: Request{RawQuery: "x=1"}, want: "http://h:1/?x=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.req.TargetURL("http://h:1"))
		})
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	attempt := &AttemptError{Attempt: 2, Op: "send", Cause: cause}
	exhausted := &ExhaustedError{Backend: "Product Service", Attempts: 3, Last: attempt}

	assert.Equal(t, "attempt 2: send: dial tcp: refused", attempt.Error())
	assert.Equal(t, "all 3 retry attempts failed for Product Service", exhausted.Error())
	assert.ErrorIs(t, exhausted, cause)
}
