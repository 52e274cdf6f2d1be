package imageserver

import (
	"github.com/Skryldev/image-server/core"
	"github.com/Skryldev/image-server/pipeline"
)

// Sources exposes the byte-source registry for advanced use (e.g. custom
// schemes in tests).  Prefer the high-level API for normal usage.
func (s *Server) Sources() *core.SourceRegistry { return s.sources }

// Transformer exposes the underlying pipeline.
func (s *Server) Transformer() *pipeline.Transformer { return s.transformer }
