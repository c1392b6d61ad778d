package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/metrics"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/Sternrassler/rickmorty-client/pkg/viewstate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve mapped character pages over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a.cfg.ListenAddr, newRouter(a.source()))
		},
	}

	cmd.Flags().StringVar(&a.cfg.ListenAddr, "listen", a.cfg.ListenAddr, "listen address")

	return cmd
}

// pageLoader loads one mapped page.
type pageLoader interface {
	Load(ctx context.Context, params pagination.LoadParams) (pagination.Page[character.Character], error)
}

// pageResponse is the body of GET /characters.
type pageResponse struct {
	Items   []character.Character `json:"items"`
	PrevKey *int                  `json:"prev_key"`
	NextKey *int                  `json:"next_key"`
}

type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

func newRouter(source pageLoader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/characters", charactersHandler(source))

	return r
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	log := logging.NewLogger(logging.ComponentServer)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func charactersHandler(source pageLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if v := r.URL.Query().Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "page must be a positive integer", Class: "request"})
				return
			}
			page = n
		}

		result, err := source.Load(r.Context(), pagination.LoadParams{
			Type: pagination.Refresh,
			Key:  pagination.Key(page),
		})
		if err != nil {
			status, class := statusFor(err)
			logger := logging.NewLogger(logging.ComponentServer)
			logger.Warn().
				Err(err).
				Int("page", page).
				Int("status", status).
				Str("error_class", class).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Page request failed")
			writeJSON(w, status, errorResponse{Error: viewstate.Message(err), Class: class})
			return
		}

		writeJSON(w, http.StatusOK, pageResponse{
			Items:   result.Items,
			PrevKey: result.PrevKey,
			NextKey: result.NextKey,
		})
	}
}

// statusFor maps a load failure to an HTTP status and error class.
func statusFor(err error) (int, string) {
	var (
		te *client.TransportError
		ue *client.UnclassifiedError
		me *character.MappingError
	)

	switch {
	case errors.Is(err, client.ErrInvalidPage):
		return http.StatusBadRequest, "request"
	case errors.As(err, &te):
		if te.Class == client.ErrorClassConnectivity {
			return http.StatusServiceUnavailable, string(te.Class)
		}
		return http.StatusBadGateway, string(te.Class)
	case errors.As(err, &me):
		return http.StatusBadGateway, string(client.ErrorClassMapping)
	case errors.As(err, &ue):
		if ue.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, string(ue.Class)
		}
		return http.StatusBadGateway, string(ue.Class)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "unknown"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
