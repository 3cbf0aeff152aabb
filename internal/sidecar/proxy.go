package sidecar

import (
	"context"
	"io"
	"log"
	"net"
	"sync"
)

// Proxy accepts TCP connections and forwards them to the configured
// upstream, touching the activity tracker whenever bytes move.
type Proxy struct {
	cfg     *Config
	tracker *Tracker
}

// NewProxy creates the sidecar proxy.
func NewProxy(cfg *Config, tracker *Tracker) *Proxy {
	return &Proxy{cfg: cfg, tracker: tracker}
}

// Serve accepts connections on l until the context is cancelled.
func (p *Proxy) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go p.handle(ctx, conn)
	}
}

// ListenAndServe binds the configured proxy address and serves on it.
func (p *Proxy) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", p.cfg.TCPListen)
	if err != nil {
		return err
	}
	log.Printf("TCP proxy listening on %s", p.cfg.TCPListen)
	return p.Serve(ctx, l)
}

func (p *Proxy) handle(ctx context.Context, downstream net.Conn) {
	defer downstream.Close()

	upstream, err := p.dialUpstream(ctx)
	if err != nil {
		log.Printf("Failed to connect upstream: %v", err)
		return
	}
	defer upstream.Close()

	p.tracker.Touch()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.pipe(upstream, downstream)
		// Propagate the client's EOF so the upstream can finish.
		if cw, ok := upstream.(closeWriter); ok {
			_ = cw.CloseWrite()
		}
	}()
	go func() {
		defer wg.Done()
		p.pipe(downstream, upstream)
		if cw, ok := downstream.(closeWriter); ok {
			_ = cw.CloseWrite()
		}
	}()
	wg.Wait()
}

func (p *Proxy) dialUpstream(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	if p.cfg.TargetUDS != "" {
		return d.DialContext(ctx, "unix", p.cfg.TargetUDS)
	}
	return d.DialContext(ctx, "tcp", p.cfg.TargetTCP)
}

type closeWriter interface {
	CloseWrite() error
}

// pipe copies src to dst, touching the tracker per chunk.
func (p *Proxy) pipe(dst io.Writer, src io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			p.tracker.Touch()
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
