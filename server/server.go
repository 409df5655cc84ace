// Package server exposes the Continuity advertiser over HTTP.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mikoaf/appleble/continuity"
)

// Registrar is the part of continuity.Advertiser the server needs.
type Registrar interface {
	Register(ctx context.Context, m continuity.Message) (continuity.Handle, error)
	Unregister(ctx context.Context, h continuity.Handle) error
}

type Config struct {
	Advertiser Registrar
	Tokens     continuity.TokenFunc
	// LocalAddress supplies the device address used when a decode request
	// carries none. Optional.
	LocalAddress func() ([continuity.AddressLen]byte, error)
	Logger       zerolog.Logger
	Registry     prometheus.Registerer
	Gatherer     prometheus.Gatherer
}

type registration struct {
	ID        string            `json:"id"`
	Kind      continuity.Kind   `json:"kind"`
	Payload   string            `json:"payload"`
	Handle    continuity.Handle `json:"handle"`
	CreatedAt time.Time         `json:"created_at"`
}

type Server struct {
	cfg     Config
	metrics *metrics
	router  chi.Router

	mu     sync.Mutex
	active map[string]registration
}

func New(cfg Config) *Server {
	if cfg.Tokens == nil {
		cfg.Tokens = continuity.SHA256Token
	}
	if cfg.Registry == nil {
		reg := prometheus.NewRegistry()
		cfg.Registry = reg
		cfg.Gatherer = reg
	}
	if cfg.Gatherer == nil {
		if g, ok := cfg.Registry.(prometheus.Gatherer); ok {
			cfg.Gatherer = g
		} else {
			cfg.Gatherer = prometheus.DefaultGatherer
		}
	}
	s := &Server{
		cfg:     cfg,
		metrics: newMetrics(cfg.Registry),
		active:  make(map[string]registration),
	}

	r := chi.NewRouter()
	r.Get("/hello", s.handleHello)
	r.Post("/encode", s.handleEncode)
	r.Post("/decode", s.handleDecode)
	r.Route("/advertisements", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleRegister)
		r.Delete("/{id}", s.handleUnregister)
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown stops every broadcast registered through the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	regs := make([]registration, 0, len(s.active))
	for _, reg := range s.active {
		regs = append(regs, reg)
	}
	s.active = make(map[string]registration)
	s.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if err := s.cfg.Advertiser.Unregister(ctx, reg.Handle); err != nil {
			errs = append(errs, err)
			continue
		}
		s.metrics.active.WithLabelValues(reg.Kind.String()).Dec()
	}
	return errors.Join(errs...)
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Hello World"))
}

func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request) (continuity.Message, bool) {
	var params continuity.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	m, err := params.Message(s.cfg.Tokens)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return m, true
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":    m.Kind(),
		"payload": hex.EncodeToString(m.Encode()),
	})
}

type decodeRequest struct {
	Payload string `json:"payload"`
	Address string `json:"address,omitempty"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	payload, err := hex.DecodeString(req.Payload)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var addr [continuity.AddressLen]byte
	switch {
	case req.Address != "":
		addr, err = continuity.ParseAddress(req.Address)
	case s.cfg.LocalAddress != nil && len(payload) > 0 && continuity.Kind(payload[0]) == continuity.KindFindMy:
		addr, err = s.cfg.LocalAddress()
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := continuity.Decode(payload, addr)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, recordView(m))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	kind := m.Kind().String()

	h, err := s.cfg.Advertiser.Register(r.Context(), m)
	if err != nil {
		s.metrics.failures.WithLabelValues(kind).Inc()
		s.writeError(w, statusFor(err), err)
		return
	}
	s.metrics.registered.WithLabelValues(kind).Inc()
	s.metrics.active.WithLabelValues(kind).Inc()

	reg := registration{
		ID:        uuid.NewString(),
		Kind:      m.Kind(),
		Payload:   hex.EncodeToString(m.Encode()),
		Handle:    h,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.active[reg.ID] = reg
	s.mu.Unlock()

	s.cfg.Logger.Info().Str("id", reg.ID).Str("kind", kind).Msg("registration created")
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	regs := make([]registration, 0, len(s.active))
	for _, reg := range s.active {
		regs = append(regs, reg)
	}
	s.mu.Unlock()

	sort.Slice(regs, func(i, j int) bool {
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	reg, ok := s.active[id]
	delete(s.active, id)
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := s.cfg.Advertiser.Unregister(r.Context(), reg.Handle); err != nil {
		// The broadcast is still running, keep it listed.
		s.mu.Lock()
		s.active[id] = reg
		s.mu.Unlock()
		s.writeError(w, statusFor(err), err)
		return
	}
	s.metrics.active.WithLabelValues(reg.Kind.String()).Dec()

	s.cfg.Logger.Info().Str("id", id).Msg("registration removed")
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	var te *continuity.TransportError
	switch {
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.Is(err, continuity.ErrValidationRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, continuity.ErrTruncatedInput), errors.Is(err, continuity.ErrUnknownKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
