package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chkforge/chkforge/builder"
	"github.com/chkforge/chkforge/inject"
	"github.com/chkforge/chkforge/journal"
	"github.com/chkforge/chkforge/shield"
)

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8787", "listen address")
	configPath := fs.String("config", "", "path to chkforge.yaml")
	journalPath := fs.String("journal", "", "record builds in this journal database")
	dir := fs.String("dir", "out", "directory served under /files and default build output dir")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBuilder(*configPath, logger)
	if err != nil {
		return err
	}

	var j *journal.Journal
	if *journalPath != "" {
		jw, db, err := openJournal(*journalPath)
		if err != nil {
			return err
		}
		defer db.Close()
		defer jw.Close()
		b.AttachJournal(jw)
		j = jw
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return fmt.Errorf("serve: output dir: %w", err)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           serveRouter(b, j, *dir, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("preview server starting", "addr", *addr, "dir", *dir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// serveRouter wires the preview API: health, recent builds, on-demand
// builds, template inspection, and static previews of built files.
func serveRouter(b *builder.Builder, j *journal.Journal, dir string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultStack(logger) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/builds", func(w http.ResponseWriter, r *http.Request) {
		// No journal attached means nothing was recorded; the surface
		// stays a plain array either way.
		if j == nil {
			writeJSON(w, http.StatusOK, []journal.Record{})
			return
		}
		records, err := j.Recent(r.Context(), queryInt(r, "limit", 20))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if records == nil {
			records = []journal.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})

	r.Post("/api/build", func(w http.ResponseWriter, r *http.Request) {
		var in builder.BuildInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if in.SpecPath == "" || in.TemplatePath == "" {
			writeError(w, http.StatusBadRequest, errors.New("spec and template are required"))
			return
		}
		// Unrouted outputs land in the served directory so /files can
		// preview them immediately.
		if in.OutPath == "" {
			in.OutPath = filepath.Join(dir, filepath.Base(builder.DeriveOutPath(in.SpecPath, time.Now())))
		}

		res, err := b.Build(r.Context(), in)
		if err != nil {
			switch {
			case errors.Is(err, inject.ErrMissingSlot), errors.Is(err, inject.ErrAmbiguousTarget):
				writeError(w, http.StatusUnprocessableEntity, err)
			case errors.Is(err, fs.ErrNotExist):
				writeError(w, http.StatusNotFound, err)
			default:
				writeError(w, http.StatusInternalServerError, err)
			}
			return
		}
		writeJSON(w, http.StatusCreated, res)
	})

	r.Get("/api/inspect", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("template")
		if path == "" {
			writeError(w, http.StatusBadRequest, errors.New("template query parameter is required"))
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		rep, err := b.Inspect(string(data))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(dir))))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
