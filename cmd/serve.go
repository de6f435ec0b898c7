package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/datasets", func(w http.ResponseWriter, req *http.Request) {
		infos, err := st.ListDatasets(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if infos == nil {
			infos = []model.DatasetInfo{}
		}
		writeJSON(w, http.StatusOK, infos)
	})

	r.Get("/datasets/{name}", func(w http.ResponseWriter, req *http.Request) {
		ds, err := st.GetDataset(req.Context(), chi.URLParam(req, "name"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, ds)
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Status:  model.RunStatus(q.Get("status")),
			Kind:    model.AnalysisKind(q.Get("kind")),
			Dataset: q.Get("dataset"),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if runs == nil {
			runs = []model.AnalysisRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Post("/analyses/{kind}", func(w http.ResponseWriter, req *http.Request) {
		kind := model.AnalysisKind(chi.URLParam(req, "kind"))
		if !validKind(kind) {
			writeError(w, http.StatusBadRequest, eris.Errorf("unknown analysis kind %q", kind))
			return
		}

		var body struct {
			Dataset string          `json:"dataset"`
			Params  json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
			return
		}
		if body.Dataset == "" {
			writeError(w, http.StatusBadRequest, eris.New("dataset is required"))
			return
		}

		run, err := st.CreateRun(req.Context(), kind, body.Dataset, body.Params)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		// The analysis outlives the request.
		go func() {
			ctx := context.Background()
			if err := executeRun(ctx, st, run); err != nil {
				zap.L().Error("analysis failed",
					zap.String("run", run.ID),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": run.ID,
			"status": string(model.RunStatusQueued),
		})
	})

	return r
}

// validKind lists the kinds runnable over the API. Isochrone is excluded:
// it reads node and edge files from local disk.
func validKind(kind model.AnalysisKind) bool {
	switch kind {
	case model.KindKMeans, model.KindDBSCAN, model.KindIDW,
		model.KindMoran, model.KindLISA, model.KindGetisOrd,
		model.KindTwoSFCA, model.KindLSCP, model.KindMCLP,
		model.KindNearest:
		return true
	}
	return false
}

// executeRun performs a queued run and records its outcome.
func executeRun(ctx context.Context, st store.Store, run *model.AnalysisRun) error {
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		return err
	}

	result, err := dispatchAnalysis(ctx, st, run.Kind, run.Dataset, run.Params)
	if err != nil {
		if failErr := st.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			return failErr
		}
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	return st.CompleteRun(ctx, run.ID, raw)
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
