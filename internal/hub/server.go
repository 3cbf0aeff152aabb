package hub

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/kubernetes"
)

const loginPage = `<!DOCTYPE html>
<html>
<head>
  <title>Workshop Hub</title>
</head>
<body>
  <h1>Workshop Hub</h1>
  <form id="login">
    <label>Username: <input name="username" autofocus></label>
    <button type="submit">Start workshop</button>
  </form>
  <script>
    document.getElementById("login").addEventListener("submit", async (e) => {
      e.preventDefault();
      const username = new FormData(e.target).get("username");
      const res = await fetch("/login", {
        method: "POST",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify({username}),
      });
      const body = await res.json();
      if (body.success && body.redirect) {
        window.location = body.redirect;
      }
    });
  </script>
</body>
</html>
`

// Server wires the hub's HTTP surface together.
type Server struct {
	cfg          *Config
	auth         *Authenticator
	orchestrator *Orchestrator
	proxy        *Proxy
	collector    *Collector
	registry     *prometheus.Registry
}

// NewServer builds the hub server around a Kubernetes client.
func NewServer(client kubernetes.Interface, cfg *Config) *Server {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	orchestrator := NewOrchestrator(client, cfg, metrics)

	auth := NewAuthenticator(cfg.TokenSecret)
	auth.onLogin = metrics.Logins.Inc

	return &Server{
		cfg:          cfg,
		auth:         auth,
		orchestrator: orchestrator,
		proxy:        NewProxy(orchestrator, metrics),
		collector:    NewCollector(client, cfg, metrics),
		registry:     registry,
	}
}

// RunGC runs the garbage collector until the context is cancelled.
func (s *Server) RunGC(ctx context.Context) {
	s.collector.Run(ctx)
}

// Handler returns the hub's HTTP handler with auth middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(loginPage))
	})
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(loginPage))
	})
	mux.HandleFunc("POST /login", s.auth.HandleLogin)
	mux.HandleFunc("POST /logout", s.auth.HandleLogout)
	mux.Handle("/workshop/", RequireAuth(s.proxy))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return s.auth.Middleware(mux)
}
