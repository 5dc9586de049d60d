package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzipResponseWriter compresses the body unless the response turns out to
// be an event stream or carries no body. The choice is made when the header
// is written.
type gzipResponseWriter struct {
	http.ResponseWriter
	writer  *gzip.Writer
	decided bool
}

func (g *gzipResponseWriter) decide(status int) {
	if g.decided {
		return
	}
	g.decided = true

	if status == http.StatusNoContent || status == http.StatusNotModified {
		return
	}
	// Event streams are flushed frame by frame.
	if strings.HasPrefix(g.Header().Get("Content-Type"), "text/event-stream") {
		return
	}

	g.Header().Set("Content-Encoding", "gzip")
	g.Header().Del("Content-Length")
	gz := gzipPool.Get().(*gzip.Writer)
	gz.Reset(g.ResponseWriter)
	g.writer = gz
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	g.decide(status)
	g.ResponseWriter.WriteHeader(status)
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.decided {
		if g.Header().Get("Content-Type") == "" {
			g.Header().Set("Content-Type", http.DetectContentType(b))
		}
		g.decide(http.StatusOK)
	}
	if g.writer == nil {
		return g.ResponseWriter.Write(b)
	}
	return g.writer.Write(b)
}

// Flush pushes buffered compressed bytes through to the client.
func (g *gzipResponseWriter) Flush() {
	if g.writer != nil {
		_ = g.writer.Flush()
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (g *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

func (g *gzipResponseWriter) close() {
	if g.writer == nil {
		return
	}
	_ = g.writer.Close()
	g.writer.Reset(io.Discard)
	gzipPool.Put(g.writer)
	g.writer = nil
}

// Pool of gzip writers to reduce allocations.
var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	},
}

// Compress provides gzip compression for JSON responses.
type Compress struct {
	skipPrefixes []string
}

// NewCompress creates a new compression middleware. Requests whose path
// starts with one of skipPrefixes are passed through untouched, which is
// used for handlers that negotiate their own encoding such as /metrics.
func NewCompress(skipPrefixes ...string) *Compress {
	return &Compress{skipPrefixes: skipPrefixes}
}

// Apply adds gzip compression to responses when the client accepts it.
func (c *Compress) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.shouldCompress(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")

		gw := &gzipResponseWriter{ResponseWriter: w}
		defer gw.close()
		next.ServeHTTP(gw, r)
	})
}

func (c *Compress) shouldCompress(r *http.Request) bool {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return false
	}
	if r.Method == http.MethodHead {
		return false
	}
	for _, prefix := range c.skipPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}
