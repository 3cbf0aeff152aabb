package hub

import (
	"context"
	"fmt"
	"log"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	utilrand "k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

const (
	sidecarHealthPort = 8080
	sidecarProxyPort  = 8888

	podStartupTimeout = 3 * time.Minute
)

// Binding describes a user's running workshop pod and the stable service
// in front of it.
type Binding struct {
	PodName     string
	ServiceName string
	// DNSName is the in-cluster address the hub proxies to.
	DNSName string
}

// Orchestrator provisions workshop pods on demand, one per user.
type Orchestrator struct {
	client  kubernetes.Interface
	cfg     *Config
	metrics *Metrics

	// startupTimeout bounds the wait for a new pod to reach Running.
	startupTimeout time.Duration
}

// NewOrchestrator creates an Orchestrator using the given Kubernetes client.
func NewOrchestrator(client kubernetes.Interface, cfg *Config, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		client:         client,
		cfg:            cfg,
		metrics:        metrics,
		startupTimeout: podStartupTimeout,
	}
}

// GetOrCreate returns the user's existing workshop pod or provisions a new
// one, waiting until it is running.
func (o *Orchestrator) GetOrCreate(ctx context.Context, userID string) (Binding, error) {
	pods := o.client.CoreV1().Pods(o.cfg.Namespace)

	existing, err := pods.List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s,%s=%s,%s=%s",
			LabelUserID, userID,
			LabelWorkshopName, o.cfg.WorkshopName,
			LabelManagedBy, ManagedByValue),
	})
	if err != nil {
		return Binding{}, fmt.Errorf("listing pods for %s: %w", userID, err)
	}
	if len(existing.Items) > 0 {
		name := existing.Items[0].Name
		log.Printf("Found existing pod for user %s: %s", userID, name)
		return o.binding(name), nil
	}

	all, err := pods.List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s,%s=%s",
			LabelManagedBy, ManagedByValue,
			LabelWorkshopName, o.cfg.WorkshopName),
	})
	if err != nil {
		return Binding{}, fmt.Errorf("counting managed pods: %w", err)
	}
	if len(all.Items) >= o.cfg.PodLimit {
		log.Printf("Pod limit (%d) reached, denying creation for user %s", o.cfg.PodLimit, userID)
		return Binding{}, ErrPodLimitReached
	}

	name := fmt.Sprintf("workshop-%s-%s", userID, utilrand.String(6))
	expiresAt := time.Now().Add(o.cfg.TTL).Unix()

	pod, err := pods.Create(ctx, o.podSpec(name, userID, expiresAt), metav1.CreateOptions{})
	if err != nil {
		return Binding{}, fmt.Errorf("creating pod %s: %w", name, err)
	}
	log.Printf("Created pod %s", name)

	ownerRef := metav1.OwnerReference{
		APIVersion: "v1",
		Kind:       "Pod",
		Name:       name,
		UID:        pod.UID,
	}
	svc := o.serviceSpec(name, userID, ownerRef)
	if _, err := o.client.CoreV1().Services(o.cfg.Namespace).Create(ctx, svc, metav1.CreateOptions{}); err != nil {
		return Binding{}, fmt.Errorf("creating service %s: %w", name, err)
	}

	if err := o.waitRunning(ctx, name); err != nil {
		// The pod never came up, remove it so the next attempt starts clean.
		// The service follows via its owner reference.
		if delErr := pods.Delete(context.WithoutCancel(ctx), name, metav1.DeleteOptions{}); delErr != nil {
			log.Printf("Failed to delete unready pod %s: %v", name, delErr)
		}
		return Binding{}, err
	}

	if o.metrics != nil {
		o.metrics.SessionsCreated.Inc()
	}
	log.Printf("Pod %s is running", name)
	return o.binding(name), nil
}

func (o *Orchestrator) binding(podName string) Binding {
	return Binding{
		PodName:     podName,
		ServiceName: podName,
		DNSName:     fmt.Sprintf("%s.%s.svc.cluster.local", podName, o.cfg.Namespace),
	}
}

func (o *Orchestrator) waitRunning(ctx context.Context, name string) error {
	err := wait.PollUntilContextTimeout(ctx, 2*time.Second, o.startupTimeout, true,
		func(ctx context.Context) (bool, error) {
			pod, err := o.client.CoreV1().Pods(o.cfg.Namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return false, nil
			}
			return pod.Status.Phase == corev1.PodRunning, nil
		})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPodNotReady, name)
	}
	return nil
}

func (o *Orchestrator) podSpec(name, userID string, expiresAt int64) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
			Labels: map[string]string{
				LabelUserID:       userID,
				LabelWorkshopName: o.cfg.WorkshopName,
				LabelManagedBy:    ManagedByValue,
				"app":             name,
			},
			Annotations: map[string]string{
				TTLAnnotation: fmt.Sprintf("%d", expiresAt),
			},
		},
		Spec: corev1.PodSpec{
			// Failed pods are reaped by the GC instead of restarting.
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:            "workshop",
					Image:           o.cfg.Image,
					ImagePullPolicy: corev1.PullIfNotPresent,
					Ports: []corev1.ContainerPort{
						{ContainerPort: int32(o.cfg.Port)},
					},
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse(o.cfg.CPURequest),
							corev1.ResourceMemory: resource.MustParse(o.cfg.MemRequest),
						},
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse(o.cfg.CPULimit),
							corev1.ResourceMemory: resource.MustParse(o.cfg.MemLimit),
						},
					},
				},
				{
					Name:            "sidecar",
					Image:           o.cfg.SidecarImage,
					ImagePullPolicy: corev1.PullIfNotPresent,
					Env: []corev1.EnvVar{
						{Name: "SIDECAR_HTTP_LISTEN", Value: fmt.Sprintf("0.0.0.0:%d", sidecarHealthPort)},
						{Name: "SIDECAR_TCP_LISTEN", Value: fmt.Sprintf("0.0.0.0:%d", sidecarProxyPort)},
						{Name: "SIDECAR_TARGET_TCP", Value: fmt.Sprintf("127.0.0.1:%d", o.cfg.Port)},
					},
					Ports: []corev1.ContainerPort{
						{Name: "health", ContainerPort: sidecarHealthPort},
						{Name: "proxy", ContainerPort: sidecarProxyPort},
					},
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("50m"),
							corev1.ResourceMemory: resource.MustParse("64Mi"),
						},
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("100m"),
							corev1.ResourceMemory: resource.MustParse("128Mi"),
						},
					},
				},
			},
		},
	}
}

func (o *Orchestrator) serviceSpec(name, userID string, owner metav1.OwnerReference) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
			Labels: map[string]string{
				LabelUserID:       userID,
				LabelWorkshopName: o.cfg.WorkshopName,
				LabelManagedBy:    ManagedByValue,
			},
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{"app": name},
			Ports: []corev1.ServicePort{
				{
					// The hub proxies user traffic through the sidecar.
					Name:       "proxy",
					Port:       sidecarProxyPort,
					TargetPort: intstr.FromInt32(sidecarProxyPort),
				},
				{
					// Queried by the garbage collector.
					Name:       "health",
					Port:       sidecarHealthPort,
					TargetPort: intstr.FromInt32(sidecarHealthPort),
				},
			},
		},
	}
}
