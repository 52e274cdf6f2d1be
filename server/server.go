// Package server exposes the transformation service over HTTP.  Transport is
// glue: all semantics live in the imageserver package and below.
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	imageserver "github.com/Skryldev/image-server"
	apperrors "github.com/Skryldev/image-server/errors"
)

// Handler glues a Server to the wire.
type Handler struct {
	srv *imageserver.Server
}

// New creates a Handler.
func New(srv *imageserver.Server) *Handler { return &Handler{srv: srv} }

// Routes builds the router: the transformation endpoint under /img, with
// liveness and metrics beside it.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/img/*", h.serveImage)
	return r
}

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	// RequestURI keeps the path and query verbatim, directive order included:
	// the cache key is the raw request string, unnormalized.
	raw := strings.TrimPrefix(r.URL.RequestURI(), "/img")

	res, err := h.srv.Handle(r.Context(), raw)
	if err != nil {
		status := statusFor(err)
		log.Error().Err(err).Str("request", raw).Int("status", status).Msg("transform failed")
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", res.Format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	_, _ = w.Write(res.Data)
}

func statusFor(err error) int {
	switch {
	case apperrors.IsCategory(err, apperrors.CategorySource):
		return http.StatusNotFound
	case apperrors.IsCategory(err, apperrors.CategoryDecode):
		return http.StatusUnsupportedMediaType
	case apperrors.IsCategory(err, apperrors.CategoryInput):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// requestLogger emits one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("uri", r.URL.RequestURI()).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
