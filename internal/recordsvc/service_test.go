package recordsvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
	ID      json.RawMessage `json:"id"`
}

func call(t *testing.T, h http.Handler, body string) rpcReply {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var reply rpcReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "2.0", reply.JSONRPC)
	return reply
}

func newTestService(t *testing.T, kind string) *Service {
	t.Helper()
	return NewService(kind, newTestStore(t), nil)
}

func TestService_Health(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "user")
	reply := call(t, svc, `{"jsonrpc":"2.0","method":"health","id":0}`)

	require.Nil(t, reply.Error)
	assert.JSONEq(t, `"User Service is healthy!"`, string(reply.Result))
	assert.Equal(t, "0", string(reply.ID))
}

func TestService_CreateGetList(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "product")

	reply := call(t, svc, `{"jsonrpc":"2.0","method":"create_product","params":{"name":"Lamp","price":12.5},"id":1}`)
	require.Nil(t, reply.Error)
	var created struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &created))
	assert.Equal(t, "Product created successfully", created.Message)
	require.NotEmpty(t, created.ID)

	// Positional params with a single object are accepted too.
	reply = call(t, svc, `{"jsonrpc":"2.0","method":"get_product","params":[{"id":"`+created.ID+`"}],"id":"two"}`)
	require.Nil(t, reply.Error)
	assert.Equal(t, `"two"`, string(reply.ID))
	var got map[string]any
	require.NoError(t, json.Unmarshal(reply.Result, &got))
	assert.Equal(t, "Lamp", got["name"])
	assert.Equal(t, 12.5, got["price"])
	assert.Equal(t, created.ID, got["id"])

	reply = call(t, svc, `{"jsonrpc":"2.0","method":"list_products","id":3}`)
	require.Nil(t, reply.Error)
	var list struct {
		Products []map[string]any `json:"products"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &list))
	assert.Equal(t, 1, list.Total)
	assert.Len(t, list.Products, 1)
}

func TestService_Errors(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "user")

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed json", body: `{"jsonrpc":`, code: CodeParseError},
		{name: "wrong version", body: `{"jsonrpc":"1.0","method":"health","id":1}`, code: CodeInvalidRequest},
		{name: "missing method", body: `{"jsonrpc":"2.0","id":1}`, code: CodeInvalidRequest},
		{name: "unknown method", body: `{"jsonrpc":"2.0","method":"delete_user","id":1}`, code: CodeMethodNotFound},
		{name: "other kind", body: `{"jsonrpc":"2.0","method":"create_product","params":{"name":"x"},"id":1}`, code: CodeMethodNotFound},
		{name: "bad params", body: `{"jsonrpc":"2.0","method":"create_user","params":"x","id":1}`, code: CodeInvalidParams},
		{name: "missing name", body: `{"jsonrpc":"2.0","method":"create_user","params":{"email":"a@b"},"id":1}`, code: CodeInternalError},
		{name: "get without id", body: `{"jsonrpc":"2.0","method":"get_user","params":{},"id":1}`, code: CodeInvalidParams},
		{name: "get unknown id", body: `{"jsonrpc":"2.0","method":"get_user","params":{"id":"nope"},"id":1}`, code: CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reply := call(t, svc, tt.body)
			require.NotNil(t, reply.Error)
			assert.Equal(t, tt.code, reply.Error.Code)
		})
	}
}

func TestService_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "user")
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestService_Methods(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "user")
	assert.Equal(t, []string{"create_user", "get_user", "list_users", "health"}, svc.Methods())
}

func TestNewService_Title(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want string
	}{
		{kind: "user", want: "User"},
		{kind: "PRODUCT", want: "Product"},
		{kind: "order item", want: "Order Item"},
		{kind: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewService(tt.kind, nil, nil).title)
		})
	}

	reply := call(t, newTestService(t, "PRODUCT"), `{"jsonrpc":"2.0","method":"health","id":1}`)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, `"Product Service is healthy!"`, string(reply.Result))
}
