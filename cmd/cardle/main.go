package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/cardle/carset"
	"github.com/hazyhaar/cardle/daily"
	"github.com/hazyhaar/cardle/dbopen"
	"github.com/hazyhaar/cardle/photosearch"
	"github.com/hazyhaar/cardle/puzzle"
	"github.com/hazyhaar/cardle/puzzle/store"
)

func main() {
	configPath := env("CARDLE_CONFIG", "cardle.yaml")
	cfg, err := puzzle.LoadConfig(configPath)
	if err != nil {
		slog.Error("load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Dataset.
	pool, err := carset.LoadCSV(cfg.DatasetPath)
	if err != nil {
		slog.Error("load dataset", "path", cfg.DatasetPath, "error", err)
		os.Exit(1)
	}
	slog.Info("dataset loaded",
		"path", cfg.DatasetPath,
		"cars", len(pool.All()),
		"selectable", len(pool.Selectable()))

	// Clock.
	clock, err := daily.New(cfg.Daily)
	if err != nil {
		slog.Error("daily clock", "error", err)
		os.Exit(1)
	}

	// Cache DB.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema))
	if err != nil {
		slog.Error("open cache db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Image search.
	resolver := photosearch.New(cfg.Search, photosearch.Config{
		Timeout:   cfg.FetchTimeout(),
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})

	svc := puzzle.NewService(pool, clock, resolver, store.New(db),
		puzzle.WithLogger(logger),
		puzzle.WithMaxGuesses(cfg.MaxGuesses),
		puzzle.WithImageBounds(cfg.ImageMaxWidth, cfg.ImageMaxHeight))

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/day-info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.DayInfo())
	})

	r.Get("/api/cars", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"cars": svc.Pool().Names()})
	})

	r.Get("/api/car/{name}", func(w http.ResponseWriter, r *http.Request) {
		name, err := url.PathUnescape(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec := svc.Pool().Lookup(name)
		if rec == nil {
			writeError(w, http.StatusNotFound, puzzle.ErrUnknownCar)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Post("/api/guess", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
			Day  int    `json:"day_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, err := svc.CompareGuess(r.Context(), body.Day, body.Name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/api/hint", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Field string `json:"field"`
			Day   int    `json:"day_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		value, err := svc.FieldHint(r.Context(), body.Day, body.Field)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"field": body.Field, "value": value})
	})

	r.Post("/api/reveal", func(w http.ResponseWriter, r *http.Request) {
		day := queryInt(r, "day", 0)
		rec, err := svc.RevealAnswer(r.Context(), day)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Get("/api/history/{day}", func(w http.ResponseWriter, r *http.Request) {
		day, err := strconv.Atoi(chi.URLParam(r, "day"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec, err := svc.RevealAnswer(r.Context(), day)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"day_number": day, "car": rec})
	})

	r.Get("/clue.png", func(w http.ResponseWriter, r *http.Request) {
		guess := queryInt(r, "guess", 0)
		day := queryInt(r, "day", 0)
		png, err := svc.ClueImage(r.Context(), day, guess)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePNG(w, png)
	})

	r.Get("/full-image.png", func(w http.ResponseWriter, r *http.Request) {
		day := queryInt(r, "day", 0)
		png, err := svc.FullImage(r.Context(), day)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePNG(w, png)
	})

	// Admin routes only exist when a password hash is configured.
	if cfg.Admin.PasswordHash != "" {
		r.Group(func(r chi.Router) {
			r.Use(basicAuth(cfg.Admin.User, cfg.Admin.PasswordHash))

			r.Post("/api/admin/cache/purge", func(w http.ResponseWriter, r *http.Request) {
				if err := svc.PurgeCache(r.Context()); err != nil {
					writeError(w, http.StatusInternalServerError, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
			})

			r.Get("/api/admin/selections", func(w http.ResponseWriter, r *http.Request) {
				sels, err := svc.RecentSelections(r.Context(), queryInt(r, "limit", 50))
				if err != nil {
					writeError(w, http.StatusInternalServerError, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"selections": sels})
			})
		})
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("cardle listening", "addr", cfg.Listen, "max_guesses", cfg.MaxGuesses)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
}

// basicAuth gates admin routes behind HTTP Basic Auth with a bcrypt hash.
func basicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="cardle admin"`)
				writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeServiceError maps service sentinels onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, puzzle.ErrUnknownCar),
		errors.Is(err, puzzle.ErrUnknownField),
		errors.Is(err, puzzle.ErrInvalidDay):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, puzzle.ErrNoPuzzle):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
