package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/acquire"
	"github.com/sells-group/recipe-cli/internal/model"
)

const shutdownTimeout = 15 * time.Second

var servePort int

// recipeExtractor is the part of the orchestrator the HTTP layer uses.
type recipeExtractor interface {
	Extract(ctx context.Context, url string) (*model.ExtractionResult, error)
}

type transcriber interface {
	GetTranscript(ctx context.Context, url string) string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP extraction server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)

		env, err := initExtract(ctx, cfg, "serve")
		if err != nil {
			return err
		}

		newExtractor := func() recipeExtractor { return env.Pipeline() }
		return startServer(ctx, buildRouter(newExtractor, env.Acquire), cfg.Server.Port)
	},
}

// buildRouter wires the HTTP routes. newExtractor is called once per
// request so no orchestrator state is shared between requests.
func buildRouter(newExtractor func() recipeExtractor, transcripts transcriber) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/extract", func(w http.ResponseWriter, r *http.Request) {
		url, ok := decodeURL(w, r)
		if !ok {
			return
		}

		result, err := newExtractor().Extract(r.Context(), url)
		if err != nil {
			writeExtractError(w, r, url, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/transcript", func(w http.ResponseWriter, r *http.Request) {
		url, ok := decodeURL(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, transcriptBody(transcripts.GetTranscript(r.Context(), url)))
	})

	return r
}

type urlRequest struct {
	URL string `json:"url"`
}

func decodeURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", false
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return "", false
	}
	return url, true
}

type errorResponse struct {
	Error    string            `json:"error"`
	Failures []acquire.Failure `json:"failures,omitempty"`
}

// writeExtractError maps an acquisition failure to 502 with the
// per-provider detail; anything else is a 500.
func writeExtractError(w http.ResponseWriter, r *http.Request, url string, err error) {
	zap.L().Error("extraction request failed",
		zap.String("url", url),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)

	var agg *acquire.AggregateError
	if errors.As(err, &agg) {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: agg.Error(), Failures: agg.Failures})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
