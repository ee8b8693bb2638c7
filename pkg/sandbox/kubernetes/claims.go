package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"
	extensionsv1alpha1 "sigs.k8s.io/agent-sandbox/extensions/api/v1alpha1"

	"github.com/google/uuid"

	"github.com/rhuss/sandboxagent/pkg/debug"
)

// pollInterval is how often a pending Sandbox is re-read.
const pollInterval = 500 * time.Millisecond

// NewScheme returns a runtime.Scheme with the agent-sandbox types registered.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := sandboxv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register sandbox types: %w", err)
	}
	if err := extensionsv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register extensions types: %w", err)
	}
	return scheme, nil
}

// claimNameFn names SandboxClaims. Tests replace it for determinism.
var claimNameFn = func() string {
	return "sandboxagent-" + uuid.NewString()[:8]
}

// claim creates a SandboxClaim for template and waits until the matching
// Sandbox reports Ready with a service FQDN. The returned release func
// deletes the claim and is safe to call once the execution is done.
func (e *Executor) claim(ctx context.Context, template string) (fqdn string, release func(), err error) {
	name := claimNameFn()
	c := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: e.cfg.Namespace,
			Labels:    map[string]string{"app.kubernetes.io/managed-by": "sandboxagent"},
		},
		Spec: extensionsv1alpha1.SandboxClaimSpec{
			TemplateRef: extensionsv1alpha1.SandboxTemplateRef{Name: template},
		},
	}
	if err := e.client.Create(ctx, c); err != nil {
		return "", nil, fmt.Errorf("create SandboxClaim %q: %w", name, err)
	}
	debug.Log("sandbox", "claim created", "name", name, "namespace", e.cfg.Namespace, "template", template)

	release = func() { e.deleteClaim(name) }

	fqdn, err = e.waitForReady(ctx, name)
	if err != nil {
		release()
		return "", nil, err
	}
	return fqdn, release, nil
}

// waitForReady polls the Sandbox named after the claim until it is ready
// or ClaimTimeout passes.
func (e *Executor) waitForReady(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ClaimTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	key := types.NamespacedName{Name: name, Namespace: e.cfg.Namespace}
	for {
		sb := &sandboxv1alpha1.Sandbox{}
		err := e.client.Get(ctx, key, sb)
		switch {
		case err != nil:
			// The controller may not have created the Sandbox yet.
			debug.Log("sandbox", "waiting for sandbox", "name", name, "error", err)
		case isReady(sb) && sb.Status.ServiceFQDN != "":
			return sb.Status.ServiceFQDN, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: sandbox %q not ready after %s", ErrClaimTimeout, name, e.cfg.ClaimTimeout)
			}
			return "", fmt.Errorf("waiting for sandbox %q: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func isReady(sb *sandboxv1alpha1.Sandbox) bool {
	for _, c := range sb.Status.Conditions {
		if c.Type == string(sandboxv1alpha1.SandboxConditionReady) && c.Status == metav1.ConditionTrue {
			return true
		}
	}
	return false
}

// deleteClaim removes the claim with a fresh context so cleanup also runs
// after the caller's context was canceled.
func (e *Executor) deleteClaim(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: e.cfg.Namespace},
	}
	if err := e.client.Delete(ctx, c); client.IgnoreNotFound(err) != nil {
		slog.Warn("failed to delete SandboxClaim", "name", name, "namespace", e.cfg.Namespace, "error", err)
		return
	}
	debug.Log("sandbox", "claim deleted", "name", name)
}
