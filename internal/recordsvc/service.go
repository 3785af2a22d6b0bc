package recordsvc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// maxRequestBytes caps a JSON-RPC request body.
const maxRequestBytes = 1 << 20

// Service answers JSON-RPC calls for one kind of record:
// create_<kind>, get_<kind>, list_<kind>s and health.
type Service struct {
	kind   string
	title  string
	store  *Store
	logger observability.Logger
}

// NewService creates a service for kind ("user", "product", ...).
func NewService(kind string, store *Store, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		kind:   kind,
		title:  cases.Title(language.English).String(kind),
		store:  store,
		logger: logger.With(observability.String("kind", kind)),
	}
}

// Methods returns the method names the service answers.
func (s *Service) Methods() []string {
	return []string{"create_" + s.kind, "get_" + s.kind, "list_" + s.kind + "s", "health"}
}

// ServeHTTP implements http.Handler. Only POST is accepted; protocol
// errors are answered with HTTP 200 and a JSON-RPC error object.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		s.write(w, Response{Error: newError(CodeParseError, "Parse error", err.Error())})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.write(w, Response{Error: newError(CodeParseError, "Parse error", err.Error())})
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		s.write(w, Response{ID: req.ID, Error: newError(CodeInvalidRequest, "Invalid request", nil)})
		return
	}

	result, rpcErr := s.call(r, &req)
	s.write(w, Response{ID: req.ID, Result: result, Error: rpcErr})
}

func (s *Service) call(r *http.Request, req *Request) (any, *Error) {
	ctx := r.Context()
	logger := s.logger.WithContext(ctx)

	switch req.Method {
	case "health":
		return s.title + " Service is healthy!", nil

	case "create_" + s.kind:
		params, err := objectParams(req.Params)
		if err != nil {
			return nil, newError(CodeInvalidParams, "Invalid params", err.Error())
		}
		rec, err := s.store.Create(ctx, s.kind, params)
		if err != nil {
			logger.Error("failed to create record", observability.Error(err))
			return nil, newError(CodeInternalError, "Failed to create "+s.kind, err.Error())
		}
		logger.Info("record created", observability.String("id", rec.ID))
		return map[string]string{
			"id":      rec.ID,
			"message": s.title + " created successfully",
		}, nil

	case "get_" + s.kind:
		params, err := objectParams(req.Params)
		if err != nil {
			return nil, newError(CodeInvalidParams, "Invalid params", err.Error())
		}
		id, _ := params["id"].(string)
		if id == "" {
			return nil, newError(CodeInvalidParams, "Invalid params", "id is required")
		}
		rec, err := s.store.Get(ctx, s.kind, id)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Error("failed to get record", observability.String("id", id), observability.Error(err))
			}
			return nil, newError(CodeInternalError, "Failed to get "+s.kind, err.Error())
		}
		return rec, nil

	case "list_" + s.kind + "s":
		records, err := s.store.List(ctx, s.kind)
		if err != nil {
			logger.Error("failed to list records", observability.Error(err))
			return nil, newError(CodeInternalError, "Failed to list "+s.kind+"s", err.Error())
		}
		return map[string]any{
			s.kind + "s": records,
			"total":      len(records),
		}, nil

	default:
		return nil, newError(CodeMethodNotFound, "Method not found", req.Method)
	}
}

func (s *Service) write(w http.ResponseWriter, resp Response) {
	resp.JSONRPC = jsonRPCVersion
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("failed to write response", observability.Error(err))
	}
}
