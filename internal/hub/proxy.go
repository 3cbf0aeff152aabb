package hub

import (
	"errors"
	"log"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
)

// Proxy forwards authenticated workshop traffic to the user's pod,
// provisioning one first when needed.
type Proxy struct {
	orchestrator *Orchestrator
	metrics      *Metrics

	// transport is swapped in tests.
	transport http.RoundTripper
}

// NewProxy creates the workshop traffic proxy.
func NewProxy(orchestrator *Orchestrator, metrics *Metrics) *Proxy {
	return &Proxy{orchestrator: orchestrator, metrics: metrics}
}

// ServeHTTP resolves the user's pod and streams the request through its
// sidecar proxy port.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	binding, err := p.orchestrator.GetOrCreate(r.Context(), id.UserID)
	switch {
	case errors.Is(err, ErrPodLimitReached):
		http.Error(w, "Service is at capacity, please try again later", http.StatusServiceUnavailable)
		return
	case errors.Is(err, ErrPodNotReady):
		http.Error(w, "Workshop failed to start", http.StatusGatewayTimeout)
		return
	case err != nil:
		log.Printf("Failed to get pod for %s: %v", id.UserID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if p.metrics != nil {
		p.metrics.ProxyRequests.Inc()
	}

	target := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(binding.DNSName, strconv.Itoa(sidecarProxyPort)),
	}
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = workshopPath(pr.In.URL.Path)
		},
		Transport: p.transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("Proxy request for %s failed: %v", id.UserID, err)
			if p.metrics != nil {
				p.metrics.ProxyErrors.Inc()
			}
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	rp.ServeHTTP(w, r)
}

// workshopPath strips the /workshop prefix so pods see root-relative paths.
func workshopPath(path string) string {
	rest := strings.TrimPrefix(path, "/workshop")
	if rest == "" || !strings.HasPrefix(rest, "/") {
		return "/"
	}
	return rest
}
