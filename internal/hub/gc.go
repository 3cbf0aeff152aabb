package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const gcInterval = 5 * time.Minute

// sidecarHealth is the idle report served by the workshop sidecar.
type sidecarHealth struct {
	Status                string `json:"status"`
	LastActivityTimestamp int64  `json:"last_activity_timestamp"`
	IdleSeconds           int64  `json:"idle_seconds"`
}

// Collector reaps workshop pods that exceeded their TTL, stopped running,
// or went idle past the configured timeout.
type Collector struct {
	client  kubernetes.Interface
	cfg     *Config
	http    *http.Client
	metrics *Metrics
	now     func() time.Time

	// healthURL maps a service name to its sidecar health endpoint.
	// Replaced in tests.
	healthURL func(serviceName string) string
}

// NewCollector creates a garbage collector for managed workshop pods.
func NewCollector(client kubernetes.Interface, cfg *Config, metrics *Metrics) *Collector {
	c := &Collector{
		client:  client,
		cfg:     cfg,
		http:    &http.Client{Timeout: 5 * time.Second},
		metrics: metrics,
		now:     time.Now,
	}
	c.healthURL = func(serviceName string) string {
		return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d/health",
			serviceName, cfg.Namespace, sidecarHealthPort)
	}
	return c
}

// Run sweeps on a fixed interval until the context is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sweep(ctx); err != nil {
				log.Printf("GC: sweep failed: %v", err)
			}
		}
	}
}

// Sweep checks every managed pod once and deletes the expired ones.
func (c *Collector) Sweep(ctx context.Context) error {
	pods := c.client.CoreV1().Pods(c.cfg.Namespace)

	list, err := pods.List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s,%s=%s",
			LabelManagedBy, ManagedByValue,
			LabelWorkshopName, c.cfg.WorkshopName),
	})
	if err != nil {
		return fmt.Errorf("listing managed pods: %w", err)
	}

	if c.metrics != nil {
		c.metrics.ActivePods.Set(float64(len(list.Items)))
	}
	if len(list.Items) == 0 {
		return nil
	}
	log.Printf("GC: checking %d managed pods", len(list.Items))

	now := c.now().Unix()
	for i := range list.Items {
		pod := &list.Items[i]
		if reason := c.reapReason(ctx, pod, now); reason != "" {
			log.Printf("GC: deleting pod %s (%s)", pod.Name, reason)
			if err := pods.Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil {
				log.Printf("GC: failed to delete pod %s: %v", pod.Name, err)
				continue
			}
			if c.metrics != nil {
				c.metrics.PodsReaped.WithLabelValues(reason).Inc()
			}
		}
	}
	return nil
}

// reapReason returns a non-empty reason when the pod should be deleted.
func (c *Collector) reapReason(ctx context.Context, pod *corev1.Pod, now int64) string {
	if expiresAt, ok := ttlExpiry(pod); ok && now > expiresAt {
		return "ttl-expired"
	}

	if pod.Status.Phase != corev1.PodRunning {
		return "not-running"
	}

	// The service name matches the pod name.
	health, err := c.fetchHealth(ctx, pod.Name)
	if err != nil {
		log.Printf("GC: health check for %s failed: %v", pod.Name, err)
		return "unreachable"
	}

	log.Printf("GC: pod %s idle for %ds", pod.Name, health.IdleSeconds)
	if time.Duration(health.IdleSeconds)*time.Second > c.cfg.IdleTimeout {
		return "idle"
	}
	return ""
}

func (c *Collector) fetchHealth(ctx context.Context, serviceName string) (*sidecarHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL(serviceName), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health endpoint returned %s", resp.Status)
	}
	var health sidecarHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &health, nil
}

func ttlExpiry(pod *corev1.Pod) (int64, bool) {
	raw, ok := pod.Annotations[TTLAnnotation]
	if !ok {
		return 0, false
	}
	expiresAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return expiresAt, true
}
