package main

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed frontend
var frontendFS embed.FS

const (
	maxRequestSize   = 4 << 10
	maxWordLength    = 30
	downloadFilename = "my-kiddo-puzzle.png"
	genericFailure   = "Oh no! Something went wrong. Let's try again."
)

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	done     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		done:     make(chan struct{}),
	}
	// Cleanup stale entries every minute until stopped.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-rl.done:
				return
			case <-ticker.C:
			}
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

// stop ends the cleanup goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	router     chi.Router
	store      *Store
	gen        *Generator
	sse        *Broadcaster
	logger     *zap.Logger
	generateRL *rateLimiter
	trustProxy bool
}

// ServerOptions tune a Server.
type ServerOptions struct {
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// NewServer creates a configured HTTP server. gen may be nil when Gemini is
// not configured; generation requests then answer 503.
func NewServer(store *Store, gen *Generator, logger *zap.Logger, opts ServerOptions) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		store:      store,
		gen:        gen,
		sse:        NewBroadcaster(),
		logger:     logger,
		generateRL: newRateLimiter(5, time.Minute), // 5 puzzles/min per IP
		trustProxy: opts.TrustProxy,
	}
	s.routes()
	return s
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.generateRL.stop()
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/puzzles", s.handleGenerate)
		r.Get("/puzzles/current", s.handleCurrent)
		r.Get("/puzzles/current/image.png", s.handleDownload)
		r.Get("/puzzles/{id}/image.png", s.handleDownload)
		r.Get("/events", s.handleEvents)
	})

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	r.Handle("/*", http.FileServer(http.FS(frontendDir)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; connect-src 'self'")
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request once the handler returns.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// puzzleResponse is the JSON view of the current puzzle.
type puzzleResponse struct {
	*PuzzleData
	HasBackground bool   `json:"hasBackground"`
	ImageURL      string `json:"imageUrl"`
	DownloadName  string `json:"downloadName"`
}

func newPuzzleResponse(p *PuzzleData) puzzleResponse {
	return puzzleResponse{
		PuzzleData:    p,
		HasBackground: p.HasBackground(),
		ImageURL:      "/api/puzzles/" + p.ID + "/image.png",
		DownloadName:  downloadFilename,
	}
}

// --- Puzzle handlers ---

// POST /api/puzzles — generate a new puzzle from three words.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.generateRL.allow(clientIP(r)) {
		jsonError(w, "Too many puzzles, try again in a minute", http.StatusTooManyRequests)
		return
	}

	if s.gen == nil {
		jsonError(w, "Puzzle generation is not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Words   []string `json:"words"`
		Session string   `json:"session"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Words) != 3 {
		jsonError(w, "Please pick three words", http.StatusBadRequest)
		return
	}

	var words [3]string
	for i, word := range req.Words {
		words[i] = sanitizeWord(word)
		if utf8.RuneCountInString(words[i]) > maxWordLength {
			jsonError(w, "Words can be at most 30 letters long", http.StatusBadRequest)
			return
		}
	}
	session := sanitizeSession(req.Session)

	result, err := s.gen.Generate(r.Context(), words, func(step Step) {
		s.publish(session, map[string]string{
			"type":    "progress",
			"step":    string(step),
			"message": step.Message(),
		})
	})
	switch {
	case errors.Is(err, ErrMissingWords):
		jsonError(w, "Please pick three words", http.StatusBadRequest)
		return
	case errors.Is(err, ErrBusy):
		jsonError(w, "A puzzle is already on its way, please wait", http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("Puzzle generation failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Strings("words", words[:]),
			zap.Error(err),
		)
		s.publish(session, map[string]string{"type": "error", "message": genericFailure})
		jsonError(w, genericFailure, http.StatusInternalServerError)
		return
	}

	s.publish(session, map[string]string{"type": "done", "id": result.Puzzle.ID})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newPuzzleResponse(result.Puzzle))
}

// GET /api/puzzles/current — the last generated puzzle.
func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	p := s.store.Current()
	if p == nil {
		jsonError(w, "No puzzle yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newPuzzleResponse(p))
}

// GET /api/puzzles/{id}/image.png — the downloadable image of one puzzle.
// The "current" route serves whatever puzzle is in the store.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	p, data := s.store.Image()
	if p == nil || len(data) == 0 {
		jsonError(w, "No puzzle yet", http.StatusNotFound)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" && id != p.ID {
		jsonError(w, "This puzzle was replaced by a newer one", http.StatusGone)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadFilename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// GET /api/events — SSE stream of generation progress for a session.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	session := sanitizeSession(r.URL.Query().Get("session"))
	if session == "" {
		jsonError(w, "Parameter 'session' required", http.StatusBadRequest)
		return
	}

	s.sse.ServeSSE(w, r, session, func(c *client) {
		evt, _ := json.Marshal(map[string]any{
			"type": "hello",
			"busy": s.gen != nil && s.gen.Busy(),
		})
		c.ch <- string(evt)
	})
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"gemini": s.gen != nil,
	})
}

// --- Helpers ---

func (s *Server) publish(session string, evt map[string]string) {
	if session == "" {
		return
	}
	data, _ := json.Marshal(evt)
	s.sse.Broadcast(session, string(data))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// clientIP is the rate-limit key: the host part of RemoteAddr, without the
// port. With TrustProxy, RealIP has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sanitizeWord(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sanitizeSession(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		return ""
	}
	for _, r := range s {
		if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return ""
		}
	}
	return s
}
