// Package server exposes the webhook endpoint Telegram delivers updates to,
// plus health and metrics surfaces.
package server

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/config"
	"relaybot/internal/metrics"
)

// secretHeader is the header Telegram echoes back when a webhook is
// registered with a secret token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxUpdateBytes bounds the webhook request body. Updates are metadata only;
// file bytes never travel through the webhook.
const maxUpdateBytes = 1 << 20

// UpdateHandler consumes one decoded update. Implemented by relay.Dispatcher.
type UpdateHandler interface {
	HandleUpdate(update tgbotapi.Update)
}

// Server is the webhook HTTP front end.
type Server struct {
	cfg     *config.Config
	handler UpdateHandler
	logger  *slog.Logger
	server  *http.Server
}

func New(cfg *config.Config, handler UpdateHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, handler: handler, logger: logger}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Listen.Path, s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Collector.Handler())

	addr := fmt.Sprintf("%s:%d", s.cfg.Listen.Host, s.cfg.Listen.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting", "addr", addr, "path", s.cfg.Listen.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// handleWebhook acknowledges every well-formed delivery with 200 before the
// relay work completes; Telegram retries non-2xx responses, and a retried
// update would mean a duplicate upload.
func (s *Server) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.cfg.Validate(); err != nil {
		s.logger.Error("config incomplete", "err", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.cfg.WebhookSecret != "" {
		token := r.Header.Get(secretHeader)
		if !hmac.Equal([]byte(token), []byte(s.cfg.WebhookSecret)) {
			s.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
			http.Error(rw, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		// Acknowledge garbage too: a 4xx would make Telegram redeliver it.
		s.logger.Warn("undecodable update", "err", err, "body_len", len(body))
		rw.WriteHeader(http.StatusOK)
		io.WriteString(rw, "OK")
		return
	}

	s.handler.HandleUpdate(update)

	rw.WriteHeader(http.StatusOK)
	io.WriteString(rw, "OK")
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(map[string]string{"status": "ok"})
}
