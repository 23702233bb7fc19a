package main

import (
	"encoding/base64"
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
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ttb-tools/labelcheck/internal/model"
	"github.com/ttb-tools/labelcheck/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP verification API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API router over an initialized environment.
func newRouter(env *verifyEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/extract", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ImageBase64 string `json:"imageBase64"`
			MediaType   string `json:"mediaType"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.ImageBase64 == "" || body.MediaType == "" {
			writeError(w, http.StatusBadRequest, "missing imageBase64 or mediaType")
			return
		}
		image, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "imageBase64 is not valid base64")
			return
		}

		start := time.Now()
		extracted, err := env.Extractor.Extract(req.Context(), image, body.MediaType)
		if err != nil {
			zap.L().Error("extraction failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, eris.Cause(err).Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"extractedData":    extracted,
			"processingTimeMs": time.Since(start).Milliseconds(),
		})
	})

	r.Post("/api/verify", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ImageBase64 string            `json:"imageBase64"`
			MediaType   string            `json:"mediaType"`
			ImageName   string            `json:"imageName"`
			Application model.Application `json:"applicationData"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.ImageBase64 == "" || body.MediaType == "" {
			writeError(w, http.StatusBadRequest, "missing required fields: imageBase64, mediaType, applicationData")
			return
		}
		if body.Application.BeverageType == "" || body.Application.BrandName == "" {
			writeError(w, http.StatusBadRequest, "application data must include at least beverageType and brandName")
			return
		}
		image, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "imageBase64 is not valid base64")
			return
		}

		verdict, err := env.Engine.Verify(req.Context(), image, body.MediaType, body.Application)
		if err != nil {
			zap.L().Error("verification failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, eris.Cause(err).Error())
			return
		}
		verdict.ImageName = body.ImageName

		if _, err := env.Store.SaveEntry(req.Context(), body.Application, *verdict); err != nil {
			zap.L().Warn("failed to save verification history", zap.Error(err))
		}

		writeJSON(w, http.StatusOK, verdict)
	})

	r.Get("/api/history", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		entries, err := env.Store.ListEntries(req.Context(), store.HistoryFilter{
			Status: model.OverallStatus(q.Get("status")),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			zap.L().Error("history list failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list history")
			return
		}
		if entries == nil {
			entries = []model.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/api/history/{id}", func(w http.ResponseWriter, req *http.Request) {
		entry, err := env.Store.GetEntry(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "verification not found")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	})

	r.Delete("/api/history", func(w http.ResponseWriter, req *http.Request) {
		n, err := env.Store.ClearEntries(req.Context())
		if err != nil {
			zap.L().Error("history clear failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to clear history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
