package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
	"github.com/HammerMeetNail/solutionbase/internal/metrics"
	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

// MaxRequestBodySize is the largest request body accepted (1 MiB).
const MaxRequestBodySize = 1 << 20

// Config holds the collaborators of a Server.
type Config struct {
	Solutions     services.SolutionRepository
	Authenticator services.TokenAuthenticator
	Metrics       *metrics.Metrics // optional
	Version       string
}

// Server is the HTTP handler of the JSON-RPC endpoint.
type Server struct {
	registry *Registry
	auth     services.TokenAuthenticator
	metrics  *metrics.Metrics
	version  string
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Solutions == nil {
		return nil, errors.New("solution repository is required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("token authenticator is required")
	}

	s := &Server{
		auth:    cfg.Authenticator,
		metrics: cfg.Metrics,
		version: cfg.Version,
	}
	if s.version == "" {
		s.version = "dev"
	}

	h := &solutionHandlers{repo: cfg.Solutions}
	registry, err := NewRegistry(append(h.methods(), s.protocolMethods()...)...)
	if err != nil {
		return nil, fmt.Errorf("building method registry: %w", err)
	}
	s.registry = registry
	return s, nil
}

// Registry returns the method table the server dispatches through.
func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.serveEvents(w, r)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST")
		writeResponse(w, r, errMethodNotAllowed.HTTPStatus, errorResponse(nil, errMethodNotAllowed))
		return
	}

	start := time.Now()
	method, status, resp := s.handle(r)
	code := 0
	if resp.Error != nil {
		code = resp.Error.Code
	}
	s.metrics.ObserveRPC(method, code, time.Since(start))
	writeResponse(w, r, status, resp)
}

// serveEvents answers a GET with one empty event and returns.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, "data: {}\n\n"); err != nil {
		return
	}
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.FromContext(r.Context()).Debug("Failed to flush event stream", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handle runs one POST through the request pipeline. It returns the metric
// label of the method, the HTTP status and the response envelope.
func (s *Server) handle(r *http.Request) (string, int, Response) {
	const unresolved = "unknown"
	ctx := r.Context()
	log := logging.FromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		log.Warn("Failed to read MCP request body", map[string]interface{}{"error": err.Error()})
		return unresolved, errInvalidJSON.HTTPStatus, errorResponse(nil, errInvalidJSON)
	}
	if len(body) > MaxRequestBodySize {
		return unresolved, errBodyTooLarge.HTTPStatus, errorResponse(nil, errBodyTooLarge)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return unresolved, errEmptyRequest.HTTPStatus, errorResponse(nil, errEmptyRequest)
	}

	req, rpcErr := decodeRequest(body)
	if rpcErr != nil {
		return unresolved, rpcErr.HTTPStatus, errorResponse(req.ID, rpcErr)
	}

	caller, err := s.auth.Authenticate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		// A bare ErrInvalidToken is a rejection; a wrapped one carries a
		// storage fault.
		if err == services.ErrInvalidToken {
			s.metrics.ObserveAuth(metrics.AuthRejected)
		} else {
			s.metrics.ObserveAuth(metrics.AuthError)
			log.Error("Token authentication failed", map[string]interface{}{"error": err.Error()})
		}
		return unresolved, errUnauthorized.HTTPStatus, errorResponse(req.ID, errUnauthorized)
	}
	s.metrics.ObserveAuth(metrics.AuthOK)

	m, ok := s.registry.Lookup(req.Method)
	if !ok {
		e := methodNotFound(req.Method)
		return unresolved, e.HTTPStatus, errorResponse(req.ID, e)
	}

	args, rpcErr := arguments(req.Params)
	if rpcErr != nil {
		return m.Name, rpcErr.HTTPStatus, errorResponse(req.ID, rpcErr)
	}

	log = log.WithFields(map[string]interface{}{
		"rpc_method": m.Name,
		"user_id":    caller.ID.String(),
	})
	result, err := s.call(logging.NewContext(ctx, log), m, caller, args)
	if err != nil {
		if !errors.As(err, &rpcErr) {
			log.Error("MCP method failed", map[string]interface{}{"error": err.Error()})
			rpcErr = errInternal
		}
		return m.Name, rpcErr.HTTPStatus, errorResponse(req.ID, rpcErr)
	}
	return m.Name, http.StatusOK, successResponse(req.ID, result)
}

// call runs the handler and turns a panic into an error.
func (s *Server) call(ctx context.Context, m *Method, caller *models.User, args map[string]any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			logging.FromContext(ctx).Error("MCP method panicked", map[string]interface{}{
				"panic": fmt.Sprint(p),
				"stack": string(debug.Stack()),
			})
			result, err = nil, fmt.Errorf("panic in %s: %v", m.Name, p)
		}
	}()
	return m.Handler(ctx, caller, newCallRequest(m.Name, args))
}

// WriteRejection answers a request refused before it reached the Server,
// such as by a rate limiter, with a JSON-RPC error and a null id.
func WriteRejection(w http.ResponseWriter, r *http.Request, status int, message string) {
	code := CodeInternalError
	if status == http.StatusTooManyRequests {
		code = CodeRateLimited
	}
	writeResponse(w, r, status, errorResponse(nil, newError(status, code, message)))
}

func writeResponse(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.FromContext(r.Context()).Error("Failed to encode MCP response", map[string]interface{}{
			"error": err.Error(),
		})
		status = errInternal.HTTPStatus
		data, _ = json.Marshal(errorResponse(resp.ID, errInternal))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
