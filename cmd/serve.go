package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/appraisal-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a read-only API over the order store",
	Long: `Start a read-only HTTP API exposing orders, bracket state, and
adjustment bundles. Mutations stay on the CLI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Set up routes
		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
			orders, err := st.ListOrders(r.Context(), store.OrderFilter{})
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeResponse(w, http.StatusOK, orders)
		})

		mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, r *http.Request) {
			order, err := st.GetOrder(r.Context(), r.PathValue("id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeResponse(w, http.StatusOK, order)
		})

		mux.HandleFunc("GET /orders/{id}/selection", func(w http.ResponseWriter, r *http.Request) {
			sel, err := st.GetSelection(r.Context(), r.PathValue("id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeResponse(w, http.StatusOK, sel)
		})

		mux.HandleFunc("GET /orders/{id}/hilo", func(w http.ResponseWriter, r *http.Request) {
			state, err := st.GetHiLoState(r.Context(), r.PathValue("id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeResponse(w, http.StatusOK, state)
		})

		mux.HandleFunc("GET /orders/{id}/bundle", func(w http.ResponseWriter, r *http.Request) {
			bundle, err := st.GetBundle(r.Context(), r.PathValue("id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeResponse(w, http.StatusOK, bundle)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: rateLimited(mux, cfg.Server.RequestsPerSec),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// rateLimited caps the request rate across all clients. Burst of one second's
// worth keeps short spikes from 429ing.
func rateLimited(next http.Handler, rps float64) http.Handler {
	if rps <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	zap.L().Error("store read failed", zap.Error(err))
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
