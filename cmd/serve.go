package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/filter"
	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/monitoring"
	"github.com/aiagents-directory/directory-cli/internal/store"
	"github.com/aiagents-directory/directory-cli/internal/urlnorm"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ops and submission HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		collector := monitoring.NewCollector(st)
		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		go checker.Run(ctx)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/status", handleStatus(collector))
			r.Get("/submissions", handleListSubmissions(st))
			r.Get("/submissions/{id}", handleGetSubmission(st))
			r.Post("/submissions", handleCreateSubmission(st, filter.NewChain(cfg.Filter)))
			r.Get("/agents", handleListAgents(st))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return runServer(ctx, srv)
	},
}

// runServer serves until ctx is canceled, then drains in-flight
// requests. The canceled signal context cannot carry the drain, so
// shutdown runs on a fresh timeout.
func runServer(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(drain)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func handleStatus(collector *monitoring.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap *monitoring.MetricsSnapshot
		var err error
		if hours := queryInt(r, "hours", 0); hours > 0 {
			snap, err = collector.CollectWindow(r.Context(), time.Duration(hours)*time.Hour)
		} else {
			snap, err = collector.Collect(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleListSubmissions(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := st.ListSubmissions(r.Context(), store.SubmissionFilter{
			Status: model.Status(r.URL.Query().Get("status")),
			Limit:  queryInt(r, "limit", 50),
			Offset: queryInt(r, "offset", 0),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

func handleGetSubmission(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := st.GetSubmission(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// handleCreateSubmission accepts a manual submission. It runs the same
// normalization and filter chain as sourcing, so a hand-submitted URL
// cannot bypass the blocklist.
func handleCreateSubmission(st store.Store, chain *filter.Chain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL         string `json:"url"`
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, eris.New("url is required"))
			return
		}

		key, err := urlnorm.Normalize(req.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid url"))
			return
		}
		verdict := chain.Evaluate(key)
		if !verdict.Accept {
			writeError(w, http.StatusUnprocessableEntity, eris.Errorf("url rejected: %s", verdict.Reason))
			return
		}

		sub := &model.Submission{
			ID:           uuid.New().String(),
			IdentityKey:  key,
			RawURL:       req.URL,
			CanonicalURL: "https://" + key,
			Name:         req.Name,
			Description:  req.Description,
			Aggregator:   verdict.Aggregator,
			Status:       model.StatusDiscovered,
		}
		created, err := st.CreateSubmission(r.Context(), sub)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !created {
			writeError(w, http.StatusConflict, eris.Errorf("identity %s already active", key))
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func handleListAgents(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agents, err := st.ListAgents(r.Context(), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, agents)
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
