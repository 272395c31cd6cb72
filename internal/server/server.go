package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chainHTTP/internal/output"
	"chainHTTP/internal/resolve"
)

// maxBodySize bounds the text/plain request body holding the URL
const maxBodySize = 8 << 10

// ChainResolver resolves the redirect chain of one raw URL
type ChainResolver interface {
	Resolve(ctx context.Context, raw string) (*output.ChainResult, error)
}

// errorResponse is the body of every non-200 response
type errorResponse struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Code          string `json:"code"`
	Message       string `json:"message,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Cause         string `json:"cause,omitempty"`
}

type handler struct {
	resolver ChainResolver
	logger   *slog.Logger
}

// New returns the HTTP API: POST /v1/check and GET /healthz
func New(resolver ChainResolver, logger *slog.Logger) http.Handler {
	h := &handler{resolver: resolver, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	r.Post("/v1/check", h.check)

	return r
}

func (h *handler) check(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/plain" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{
			StatusCode:    http.StatusUnsupportedMediaType,
			StatusMessage: "Unsupported Media Type - must use text/plain",
			Code:          "UNSUPPORTED_MEDIA_TYPE",
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				StatusCode:    http.StatusRequestEntityTooLarge,
				StatusMessage: fmt.Sprintf("URL body exceeds %d bytes", maxBodySize),
				Code:          "PAYLOAD_TOO_LARGE",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			StatusCode:    http.StatusBadRequest,
			StatusMessage: "failed to read request body",
			Code:          "BAD_REQUEST",
			Cause:         err.Error(),
		})
		return
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			StatusCode:    http.StatusBadRequest,
			StatusMessage: "URL must be provided as plain text",
			Code:          "BAD_REQUEST",
		})
		return
	}

	result, err := h.resolver.Resolve(r.Context(), raw)
	if err != nil {
		h.logger.Warn("check failed",
			"request_id", middleware.GetReqID(r.Context()),
			"url", raw,
			"kind", resolve.KindOf(err),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			StatusCode:    http.StatusInternalServerError,
			StatusMessage: "health check failed",
			Code:          "CHECK_FAILED",
			Message:       err.Error(),
			Kind:          resolve.KindOf(err),
			Cause:         causeOf(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// causeOf returns the message of the error a CheckError wraps
func causeOf(err error) string {
	var checkErr *resolve.CheckError
	if errors.As(err, &checkErr) && checkErr.Err != nil {
		return checkErr.Err.Error()
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
