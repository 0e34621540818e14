// Package alexa serves the voice skill webhook.
package alexa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"avr-control/internal/domain"
)

const maxBodyBytes = 64 * 1024

// RequestHandler answers decoded voice requests.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req domain.VoiceRequest) domain.Reply
}

// LinkStatus reports the receiver connection state, e.g. "connected".
type LinkStatus func() string

type Config struct {
	Addr      string
	AuthToken string
	JWTSecret string
	// RateLimit is the number of webhook requests allowed per client IP
	// per minute.
	RateLimit int
}

type Server struct {
	addr        string
	handler     RequestHandler
	status      LinkStatus
	auth        *Authenticator
	rateLimiter *RateLimiter
	router      chi.Router
	logger      *slog.Logger

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(cfg Config, handler RequestHandler, status LinkStatus, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	s := &Server{
		addr:        cfg.Addr,
		handler:     handler,
		status:      status,
		auth:        NewAuthenticator(cfg.AuthToken, cfg.JWTSecret, logger),
		rateLimiter: NewRateLimiter(cfg.RateLimit, time.Minute),
		logger:      logger,
	}

	r := chi.NewRouter()
	r.With(s.rateLimiter.Middleware, s.auth.Middleware).Post("/alexa", s.handleAlexa)
	// No rate limiting on health check
	r.Get("/health", s.handleHealth)
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("alexa webhook starting", "addr", s.addr, "auth", s.auth.Enabled())
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) handleAlexa(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("decoding alexa request", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if env.Request.Type == "" {
		http.Error(w, "missing request type", http.StatusBadRequest)
		return
	}

	reply := s.handler.HandleRequest(r.Context(), env.VoiceRequest())

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	if err := json.NewEncoder(w).Encode(NewResponse(reply)); err != nil {
		s.logger.Error("writing alexa response", "error", err)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Link   string `json:"link"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	link := "unknown"
	if s.status != nil {
		link = s.status()
	}

	resp := healthResponse{Status: "ok", Link: link}
	statusCode := http.StatusOK
	if link != "connected" {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("writing health response", "error", err)
	}
}
