package pprofserver

import (
	"crypto/subtle"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

// Config stores profiler listener settings. Callers outside loopback need User and Pass.
type Config struct {
	Addr string
	User string
	Pass string
}

func (c Config) remoteAllowed() bool { return c.User != "" && c.Pass != "" }

// NewServer builds the profiling server. It never shares a listener with the portal API.
func NewServer(cfg Config, logger logx.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		// profile и trace пишут дольше обычного запроса
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler mounts the runtime profiles behind the access gate.
func Handler(cfg Config, logger logx.Logger) http.Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	r := chi.NewRouter()
	r.Use(gate{cfg: cfg, logger: logger}.wrap)
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Post("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/{profile}", func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "profile")).ServeHTTP(w, req)
		})
	})
	return r
}

type gate struct {
	cfg    Config
	logger logx.Logger
}

func (g gate) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fromLoopback(r.RemoteAddr) || g.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		g.logger.Warn("pprof access denied",
			logx.String("remote", r.RemoteAddr),
			logx.String("path", r.URL.Path),
		)
		w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func (g gate) authorized(r *http.Request) bool {
	if !g.cfg.remoteAllowed() {
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	// оба сравнения выполняются всегда
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(g.cfg.User))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(g.cfg.Pass))
	return userOK&passOK == 1
}

func fromLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.Unmap().IsLoopback()
}
