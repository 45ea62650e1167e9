package devtools

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	herrors "github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/hookstore"
)

// shutdownTimeout bounds graceful shutdown after the start context ends.
const shutdownTimeout = 5 * time.Second

// maxDispatchBody caps the size of a dispatch request body.
const maxDispatchBody = 1 << 20

// Server is the devtools HTTP server for one registry.
type Server struct {
	reg    *hookstore.Registry
	cfg    Config
	logger *slog.Logger
	router chi.Router

	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*client

	httpServer *http.Server
	addr       net.Addr
}

// New creates a devtools server for reg. Routes are built immediately; the
// server does not listen until Start is called.
func New(reg *hookstore.Registry, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		reg:     reg,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "devtools"),
		clients: make(map[string]*client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/stores", s.handleList)
	r.Route("/stores/{name}", func(r chi.Router) {
		r.Get("/", s.handleGet)
		r.Post("/dispatch", s.handleDispatch)
		r.Get("/ws", s.handleStream)
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

// Handler returns the HTTP handler serving all devtools routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves in a background goroutine. It returns once
// the listener is bound. Cancelling ctx shuts the server down gracefully and
// closes every websocket client.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("devtools: bind %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("devtools listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("devtools server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("devtools shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// StoreInfo describes one store.
type StoreInfo struct {
	Name        string          `json:"name"`
	Reducer     bool            `json:"reducer"`
	StateType   string          `json:"stateType"`
	PayloadType string          `json:"payloadType"`
	Subscribers int             `json:"subscribers"`
	Triggers    int             `json:"triggers"`
	State       json.RawMessage `json:"state,omitempty"`
	StateError  string          `json:"stateError,omitempty"`
}

func describe(h *hookstore.Handle) StoreInfo {
	return StoreInfo{
		Name:        h.Name(),
		Reducer:     h.UsesReducer(),
		StateType:   typeName(h.StateType()),
		PayloadType: typeName(h.PayloadType()),
		Subscribers: h.SubscriberCount(),
		Triggers:    h.TriggerCount(),
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "any"
	}
	return t.String()
}

// withState fills the JSON-encoded state. States that cannot be encoded are
// reported in StateError instead of failing the request.
func withState(info StoreInfo, state any) StoreInfo {
	raw, err := json.Marshal(state)
	if err != nil {
		info.StateError = err.Error()
		return info
	}
	info.State = raw
	return info
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names := s.reg.Names()
	out := make([]StoreInfo, 0, len(names))
	for _, name := range names {
		h, err := s.reg.Get(name)
		if err != nil {
			// Replaced or removed between Names and Get.
			continue
		}
		out = append(out, describe(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	h, ok := s.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, withState(describe(h), h.GetState()))
}

// DispatchResult is the response body of a dispatch.
type DispatchResult struct {
	Store   string          `json:"store"`
	Applied bool            `json:"applied"`
	State   json.RawMessage `json:"state,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ReadOnly {
		writeError(w, http.StatusForbidden, &herrors.Error{
			Code:    "forbidden",
			Message: "devtools is read-only",
		})
		return
	}
	h, ok := s.store(w, r)
	if !ok {
		return
	}

	payload, err := decodePayload(http.MaxBytesReader(w, r.Body, maxDispatchBody), h.PayloadType())
	if err != nil {
		writeError(w, http.StatusBadRequest, herrors.New(herrors.CodeInvalidArgument).
			WithStore(h.Name()).
			WithDetail(err.Error()).
			Wrap(hookstore.ErrInvalidArgument))
		return
	}

	var (
		next    any
		applied bool
	)
	if err := s.update(h, payload, func(state any) {
		next = state
		applied = true
	}); err != nil {
		s.logger.Error("dispatch failed", "store", h.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !applied {
		// Misuse was reported by the registry; the state is unchanged.
		next = h.GetState()
	}
	if s.cfg.AfterDispatch != nil {
		s.cfg.AfterDispatch()
	}

	res := DispatchResult{Store: h.Name(), Applied: applied}
	if raw, err := json.Marshal(next); err == nil {
		res.State = raw
	}
	writeJSON(w, http.StatusOK, res)
}

// update runs h.Update and converts a reducer panic into an error.
func (s *Server) update(h *hookstore.Handle, payload any, done func(any)) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("devtools: update panicked: %v", rec)
		}
	}()
	h.Update(payload, done)
	return nil
}

// decodePayload decodes body into a fresh value of type t.
func decodePayload(body io.Reader, t reflect.Type) (any, error) {
	if t == nil {
		var v any
		if err := json.NewDecoder(body).Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	ptr := reflect.New(t)
	if err := json.NewDecoder(body).Decode(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// store resolves the {name} URL parameter, writing a 404 on a miss.
func (s *Server) store(w http.ResponseWriter, r *http.Request) (*hookstore.Handle, bool) {
	h, err := s.reg.Get(chi.URLParam(r, "name"))
	if err != nil {
		status := http.StatusNotFound
		if stderrors.Is(err, hookstore.ErrInvalidName) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return nil, false
	}
	return h, true
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
		Store   string `json:"store,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	var body errorBody
	var he *herrors.Error
	if stderrors.As(err, &he) {
		body.Error.Code = he.Code
		body.Error.Message = he.Message
		body.Error.Store = he.Store
	} else {
		body.Error.Message = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
