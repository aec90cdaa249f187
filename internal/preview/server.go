package preview

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/edgerules/internal/errors"
	"github.com/vango-dev/edgerules/pkg/routepath"
	"github.com/vango-dev/edgerules/pkg/rules"
)

// Config configures the preview server.
type Config struct {
	// Root is the build output directory.
	Root string

	// Addr is the listen address (host:port).
	Addr string

	// Fallback is the initial rules' server runtime target. SetRules
	// replaces it together with the rules.
	Fallback string

	// Upstream is the URL fallback rules are proxied to. Optional.
	Upstream string

	// Hidden lists file names below Root that are never served.
	Hidden []string

	// LiveReload injects the reload client into HTML responses.
	LiveReload bool

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server applies rules over a directory.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	proxy   *httputil.ReverseProxy
	reload  *ReloadServer
	handler http.Handler

	mu       sync.RWMutex
	router   http.Handler
	rules    *rules.Rules
	fallback string
}

// New creates a preview server for rs.
func New(cfg Config, rs *rules.Rules) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
	}

	if cfg.Upstream != "" {
		u, err := url.Parse(cfg.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.New("E122").
				WithDetailf("preview.upstream %q is not an absolute URL", cfg.Upstream)
		}
		s.proxy = httputil.NewSingleHostReverseProxy(u)
		s.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn("upstream unavailable", "upstream", cfg.Upstream, "path", r.URL.Path, "error", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		}
	}

	if cfg.LiveReload {
		s.reload = NewReloadServer()
	}

	s.SetRules(rs, cfg.Fallback)
	s.handler = middleware.Recoverer(s.logRequests(http.HandlerFunc(s.serve)))
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Reload returns the live reload hub, or nil when live reload is disabled.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Rules returns the rules currently applied.
func (s *Server) Rules() *rules.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Fallback returns the server runtime target of the applied rules.
func (s *Server) Fallback() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// SetRules replaces the applied rules and the fallback target they were
// generated with. In-flight requests finish with the previous set.
func (s *Server) SetRules(rs *rules.Rules, fallback string) {
	if rs == nil {
		rs = rules.New()
	}
	router := s.buildRouter(rs, fallback)

	s.mu.Lock()
	s.router = router
	s.rules = rs
	s.fallback = fallback
	s.mu.Unlock()
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		if s.reload != nil {
			s.reload.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.New("E160").Wrap(err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.New("E160").WithDetailf("listening on %s", s.cfg.Addr).Wrap(err)
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if s.reload != nil && r.URL.Path == ReloadPath {
		s.reload.HandleWebSocket(w, r)
		return
	}

	canon, err := routepath.Canonicalize(r.URL.EscapedPath())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if name, ok := s.lookup(canon); ok {
			s.serveFile(w, r, name, http.StatusOK)
			return
		}
	}

	s.mu.RLock()
	router := s.router
	s.mu.RUnlock()
	router.ServeHTTP(w, r)
}

// buildRouter registers rules on a chi router in application order. A rule
// whose pattern has the same shape as an earlier one is never reached and
// is skipped.
func (s *Server) buildRouter(rs *rules.Rules, fallback string) http.Handler {
	mux := chi.NewRouter()
	seen := make(map[string]bool)

	for _, rule := range rs.Entries() {
		if rule.Input == "" {
			continue
		}
		pattern, shape := chiPattern(rule.Input)
		if seen[shape] {
			s.logger.Debug("rule shadowed by an earlier rule", "input", rule.Input)
			continue
		}
		if err := mount(mux, pattern, s.ruleHandler(rule, fallback)); err != nil {
			s.logger.Warn("rule cannot be previewed", "input", rule.Input, "error", err)
			continue
		}
		seen[shape] = true
	}

	mux.NotFound(http.NotFound)
	return mux
}

// mount registers h, turning chi's pattern panics into errors.
func mount(mux chi.Router, pattern string, h http.Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf(errors.CategoryPreview, "%v", rec)
		}
	}()
	mux.Handle(pattern, h)
	return nil
}

// chiPattern converts "/team/:id/*" into "/team/{id}/*". shape is the
// pattern with capture names removed.
func chiPattern(input string) (pattern, shape string) {
	parts := strings.Split(input, "/")
	shapes := make([]string, len(parts))
	for i, p := range parts {
		shapes[i] = p
		if len(p) > 1 && p[0] == ':' {
			parts[i] = "{" + p[1:] + "}"
			shapes[i] = "{}"
		}
	}
	return strings.Join(parts, "/"), strings.Join(shapes, "/")
}

func (s *Server) ruleHandler(rule rules.Rule, fallback string) http.Handler {
	names := paramNames(rule.Input)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := expand(rule.Target, names, r)

		switch {
		case rule.IsRedirect():
			if r.URL.RawQuery != "" && !strings.Contains(target, "?") {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, rule.Status)
		case rule.Target == fallback:
			s.toRuntime(w, r, rule.Status)
		default:
			s.rewrite(w, r, target, rule.Status)
		}
	})
}

// paramNames returns the capture names of input, longest first so that
// expanding ":id" cannot clobber ":idx".
func paramNames(input string) []string {
	var names []string
	for _, p := range strings.Split(input, "/") {
		if len(p) > 1 && p[0] == ':' {
			names = append(names, p[1:])
		}
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}

// expand substitutes captured values into target. "*" and ":splat" both
// stand for the catch-all value.
func expand(target string, names []string, r *http.Request) string {
	for _, name := range names {
		target = strings.ReplaceAll(target, ":"+name, chi.URLParam(r, name))
	}
	if strings.Contains(target, "*") || strings.Contains(target, ":splat") {
		splat := chi.URLParam(r, "*")
		target = strings.ReplaceAll(target, ":splat", splat)
		target = strings.ReplaceAll(target, "*", splat)
	}
	return target
}

func (s *Server) rewrite(w http.ResponseWriter, r *http.Request, target string, status int) {
	if u, err := url.Parse(target); err == nil && u.IsAbs() {
		http.Error(w, "rewrites to external URLs are not previewed: "+target, http.StatusBadGateway)
		return
	}
	canon, err := routepath.Canonicalize(target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, ok := s.lookup(canon)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, name, status)
}

func (s *Server) toRuntime(w http.ResponseWriter, r *http.Request, status int) {
	if s.proxy == nil {
		http.Error(w, "no server runtime: set preview.upstream to proxy server-rendered routes", http.StatusBadGateway)
		return
	}
	if status != http.StatusOK {
		w = &statusWriter{ResponseWriter: w, status: status}
	}
	s.proxy.ServeHTTP(w, r)
}

// lookup maps a canonical request path to a file below Root.
func (s *Server) lookup(canon routepath.Result) (string, bool) {
	decoded, err := url.PathUnescape(canon.Path)
	if err != nil {
		return "", false
	}
	clean := path.Clean("/" + decoded)

	var candidates []string
	if clean == "/" || canon.TrailingSlash {
		candidates = []string{path.Join(clean, "index.html")}
	} else {
		candidates = []string{clean, clean + ".html", clean + "/index.html"}
	}

	for _, c := range candidates {
		if s.hidden(c) {
			continue
		}
		full := filepath.Join(s.cfg.Root, filepath.FromSlash(c))
		info, err := os.Stat(full)
		if err == nil && !info.IsDir() {
			return full, true
		}
	}
	return "", false
}

func (s *Server) hidden(urlPath string) bool {
	base := path.Base(urlPath)
	for _, h := range s.cfg.Hidden {
		if base == h && path.Dir(urlPath) == "/" {
			return true
		}
	}
	return false
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name string, status int) {
	f, err := os.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.reload != nil && isHTML(name) {
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			w.Write(InjectClient(data))
		}
		return
	}

	if status == http.StatusOK {
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}

	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		io.Copy(w, f)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// statusWriter forces the response status of a proxied fallback.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
