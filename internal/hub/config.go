// Package hub implements the workshop session service.
//
// The hub authenticates attendees, provisions one workshop pod per user in
// the cluster, proxies browser traffic to it, and garbage-collects pods
// that expired or went idle.
package hub

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Kubernetes metadata keys used to track hub-managed objects.
const (
	// TTLAnnotation stores the unix timestamp after which a pod is reaped
	// regardless of activity.
	TTLAnnotation = "workshop-hub/ttl-expires-at"

	LabelUserID       = "workshop-hub/user-id"
	LabelWorkshopName = "workshop-hub/workshop-name"
	LabelManagedBy    = "app.kubernetes.io/managed-by"

	// ManagedByValue identifies objects owned by the hub.
	ManagedByValue = "workshop-hub"
)

// Config holds the hub settings, loaded from HUB_-prefixed environment
// variables with defaults suitable for a single-workshop deployment.
type Config struct {
	// WorkshopName is the public-facing name for this set of workshops.
	WorkshopName string

	// Namespace is where workshop pods and services are created.
	Namespace string

	// TTL is the maximum lifetime of a pod regardless of activity.
	TTL time.Duration

	// IdleTimeout is the maximum idle time before a pod is cleaned up.
	IdleTimeout time.Duration

	// Image is the workshop container image.
	Image string

	// Port is the internal port the workshop container listens on.
	Port int

	// PodLimit caps the number of concurrent workshop pods.
	PodLimit int

	// SidecarImage runs alongside the workshop container and reports
	// activity to the garbage collector.
	SidecarImage string

	// Container resource requests and limits for the workshop container.
	CPURequest string
	CPULimit   string
	MemRequest string
	MemLimit   string

	// ListenAddr is the hub's own HTTP listen address.
	ListenAddr string

	// TokenSecret signs session tokens. Required.
	TokenSecret string
}

// ConfigFromEnv loads the hub configuration from the environment.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		WorkshopName: envOr("HUB_WORKSHOP_NAME", "workshop"),
		Namespace:    envOr("HUB_WORKSHOP_NAMESPACE", "default"),
		Image:        envOr("HUB_WORKSHOP_IMAGE", "nginx"),
		SidecarImage: envOr("HUB_SIDECAR_IMAGE", "ghcr.io/nbhdai/workshop-sidecar:latest"),
		CPURequest:   envOr("HUB_WORKSHOP_CPU_REQUEST", "100m"),
		CPULimit:     envOr("HUB_WORKSHOP_CPU_LIMIT", "500m"),
		MemRequest:   envOr("HUB_WORKSHOP_MEM_REQUEST", "128Mi"),
		MemLimit:     envOr("HUB_WORKSHOP_MEM_LIMIT", "512Mi"),
		ListenAddr:   envOr("HUB_LISTEN_ADDR", ":8080"),
		TokenSecret:  os.Getenv("HUB_TOKEN_SECRET"),
	}

	var err error
	if cfg.TTL, err = envSeconds("HUB_WORKSHOP_TTL_SECONDS", 8*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = envSeconds("HUB_WORKSHOP_IDLE_SECONDS", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Port, err = envInt("HUB_WORKSHOP_PORT", 80); err != nil {
		return nil, err
	}
	if cfg.PodLimit, err = envInt("HUB_WORKSHOP_POD_LIMIT", 100); err != nil {
		return nil, err
	}

	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("HUB_TOKEN_SECRET must be set")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}
