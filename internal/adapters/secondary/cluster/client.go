// Package cluster launches inference runs as Kubernetes batch jobs. Each run
// becomes one Job executing `pitchfork worker --run <id>`, so the sampling
// work scales out horizontally instead of competing for the API server's
// in-process pool.
package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ojscutt/sl-pitchfork/internal/config"
	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

var jobGVR = schema.GroupVersionResource{
	Group:    "batch",
	Version:  "v1",
	Resource: "jobs",
}

// workerEnvName is the conventional ConfigMap/Secret holding the worker's
// database and artifact settings. Both references are optional so a bare
// cluster still schedules jobs.
const workerEnvName = "pitchfork-worker-env"

type clusterLauncher struct {
	client    dynamic.Interface
	enabled   bool
	namespace string
	image     string
	jobTTL    int
}

// NewLauncher creates the Kubernetes run launcher
func NewLauncher(cfg *config.KubernetesConfig) (ports.RunLauncher, error) {
	if !cfg.Enabled {
		return &clusterLauncher{enabled: false}, nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "pitchfork"
	}

	return &clusterLauncher{
		client:    client,
		enabled:   true,
		namespace: namespace,
		image:     cfg.WorkerImage,
		jobTTL:    cfg.JobTTLSeconds,
	}, nil
}

func (c *clusterLauncher) Runner() string {
	return domain.RunnerCluster
}

func (c *clusterLauncher) IsAvailable() bool {
	return c.enabled
}

// Launch creates the worker Job and returns its name. The worker claims the
// run itself, so a Job that never schedules leaves the run PENDING and
// restartable elsewhere.
func (c *clusterLauncher) Launch(ctx context.Context, run *domain.InferenceRun) (string, error) {
	if !c.enabled {
		return "", domain.ErrLauncherUnavailable
	}

	obj := c.buildJob(run)

	created, err := c.client.Resource(jobGVR).
		Namespace(c.namespace).
		Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("create worker job: %w", err)
	}

	return created.GetName(), nil
}

// Stop deletes the run's Job along with its pods.
func (c *clusterLauncher) Stop(ctx context.Context, run *domain.InferenceRun) error {
	if !c.enabled {
		return domain.ErrLauncherUnavailable
	}

	name := run.ExternalID
	if name == "" {
		name = jobName(run)
	}

	propagation := metav1.DeletePropagationBackground
	err := c.client.Resource(jobGVR).
		Namespace(c.namespace).
		Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil {
		return fmt.Errorf("delete worker job: %w", err)
	}

	return nil
}

func (c *clusterLauncher) buildJob(run *domain.InferenceRun) *unstructured.Unstructured {
	labels := map[string]interface{}{
		"sl-pitchfork/run-id":      run.ID.String(),
		"sl-pitchfork/emulator-id": run.EmulatorID.String(),
	}

	container := map[string]interface{}{
		"name":  "worker",
		"image": c.image,
		"args":  []interface{}{"worker", "--run", run.ID.String()},
		"envFrom": []interface{}{
			map[string]interface{}{
				"configMapRef": map[string]interface{}{
					"name":     workerEnvName,
					"optional": true,
				},
			},
			map[string]interface{}{
				"secretRef": map[string]interface{}{
					"name":     workerEnvName,
					"optional": true,
				},
			},
		},
	}

	// backoffLimit 0: a failed worker already recorded FAILED on the run,
	// rerunning it would hit the PENDING-only claim and do nothing.
	spec := map[string]interface{}{
		"backoffLimit": int64(0),
		"template": map[string]interface{}{
			"metadata": map[string]interface{}{
				"labels": labels,
			},
			"spec": map[string]interface{}{
				"restartPolicy": "Never",
				"containers":    []interface{}{container},
			},
		},
	}
	if c.jobTTL > 0 {
		spec["ttlSecondsAfterFinished"] = int64(c.jobTTL)
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "batch/v1",
			"kind":       "Job",
			"metadata": map[string]interface{}{
				"name":   jobName(run),
				"labels": labels,
			},
			"spec": spec,
		},
	}
}

// jobName derives a deterministic Job name so Stop works even when the
// external ID was never persisted.
func jobName(run *domain.InferenceRun) string {
	return "pitchfork-run-" + run.ID.String()
}

// Ensure interface compliance
var _ ports.RunLauncher = (*clusterLauncher)(nil)
