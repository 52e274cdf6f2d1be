// Package imageserver is an on-demand image transformation service: a source
// image (local file or remote URL) plus URL-encoded directives produce a
// resized, cropped, re-encoded rendition, cached under the verbatim request
// string.
package imageserver

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/Skryldev/image-server/adapters/source"
	"github.com/Skryldev/image-server/config"
	"github.com/Skryldev/image-server/core"
	apperrors "github.com/Skryldev/image-server/errors"
	"github.com/Skryldev/image-server/pipeline"
	"github.com/Skryldev/image-server/utils"
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Server is the primary entry point: the get-or-compute cache frontend over
// the transform pipeline.  Safe for concurrent use.
type Server struct {
	codec       core.Codec
	transformer *pipeline.Transformer
	sources     *core.SourceRegistry
	cache       core.KeyValueCache
	logger      core.Logger
	metrics     core.MetricsCollector

	// flight collapses concurrent misses on the same key into one
	// computation.  Observable results are unchanged: every caller still
	// receives the identical bytes.
	flight singleflight.Group
}

// New creates a fully wired Server.  Local and remote byte sources are
// registered from cfg; custom schemes can be added via Sources().
func New(cfg config.Config, codec core.Codec, cropper core.SaliencyCropper, cache core.KeyValueCache) *Server {
	sources := core.NewSourceRegistry()
	sources.Register(core.SchemeFile, source.NewLocal(cfg.BaseDir))
	remote := source.NewRemote(cfg.FetchTimeout, cfg.MaxSourceBytes)
	sources.Register(core.SchemeHTTP, remote)
	sources.Register(core.SchemeHTTPS, remote)

	return &Server{
		codec:       codec,
		transformer: pipeline.New(codec, cropper),
		sources:     sources,
		cache:       cache,
	}
}

// SetLogger attaches a structured logger.
func (s *Server) SetLogger(l core.Logger) { s.logger = l }

// SetMetrics attaches a metrics collector.
func (s *Server) SetMetrics(m core.MetricsCollector) { s.metrics = m }

// AddHook registers an observer for pipeline stage events.
func (s *Server) AddHook(h core.Hook) { s.transformer.AddHook(h) }

// Handle serves one request.  rawURL is the verbatim request string (path +
// query, unnormalized); it is looked up in the cache as-is, and on a miss the
// full pipeline runs and the result is stored under it.  Failures are never
// cached.
func (s *Server) Handle(ctx context.Context, rawURL string) (*core.Result, error) {
	data, ok, err := s.cache.Get(ctx, rawURL)
	if err != nil && s.logger != nil {
		s.logger.Warn("cache.get.failed", "key", rawURL, "error", err.Error())
	}
	if ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		return &core.Result{Data: data, Format: core.Format(utils.DetectFormat(data))}, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	// Once dispatched, a computation runs to completion: it must not be
	// cancelled out from under the other callers sharing it.
	computeCtx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(rawURL, func() (interface{}, error) {
		return s.compute(computeCtx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Result), nil
}

// compute runs the full pipeline for one cache miss.
func (s *Server) compute(ctx context.Context, rawURL string) (*core.Result, error) {
	path := core.RequestPath(rawURL)
	scheme, location := core.SchemeFor(path)
	src, ok := s.sources.For(scheme)
	if !ok {
		return nil, apperrors.New(apperrors.CategorySource, "handle", apperrors.ErrNoSourceForScheme)
	}
	buf, err := src.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	sniffed := core.Metadata{
		Format:    core.Format(utils.DetectFormat(buf)),
		SizeBytes: int64(len(buf)),
	}
	opts := core.ParseOptions(rawURL, sniffed)

	if !opts.Original {
		meta, err := s.codec.Metadata(buf)
		if err != nil {
			return nil, err
		}
		opts = core.ResolveDimensions(opts, meta.Width, meta.Height)
	}

	result, err := s.transformer.Transform(ctx, buf, opts)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && !opts.Original {
		s.metrics.RecordTransform(opts.Crop, result.Format)
	}

	if err := s.cache.Put(ctx, rawURL, result.Data); err != nil && s.logger != nil {
		// A failed store is not a failed request; the next identical request
		// simply recomputes.
		s.logger.Warn("cache.put.failed", "key", rawURL, "error", err.Error())
	}
	return result, nil
}
