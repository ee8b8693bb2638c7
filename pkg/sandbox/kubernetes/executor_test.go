package kubernetes

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"
	extensionsv1alpha1 "sigs.k8s.io/agent-sandbox/extensions/api/v1alpha1"

	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

const testNamespace = "sandboxes"

func newFakeClient(t *testing.T) client.Client {
	t.Helper()
	scheme, err := NewScheme()
	if err != nil {
		t.Fatalf("NewScheme: %v", err)
	}
	return fake.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&sandboxv1alpha1.Sandbox{}).Build()
}

// fixedClaimName makes claim names predictable for the test.
func fixedClaimName(t *testing.T, name string) {
	t.Helper()
	orig := claimNameFn
	claimNameFn = func() string { return name }
	t.Cleanup(func() { claimNameFn = orig })
}

// readySandbox does what the agent-sandbox controller does once a claim
// is bound: a Sandbox with the claim's name reports Ready.
func readySandbox(t *testing.T, c client.Client, name, fqdn string) {
	t.Helper()
	sb := &sandboxv1alpha1.Sandbox{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace}}
	if err := c.Create(context.Background(), sb); err != nil {
		t.Fatalf("create sandbox: %v", err)
	}
	sb.Status.ServiceFQDN = fqdn
	sb.Status.Conditions = []metav1.Condition{{
		Type:               string(sandboxv1alpha1.SandboxConditionReady),
		Status:             metav1.ConditionTrue,
		LastTransitionTime: metav1.Now(),
		Reason:             "Ready",
	}}
	if err := c.Status().Update(context.Background(), sb); err != nil {
		t.Fatalf("update sandbox status: %v", err)
	}
}

// sandboxServer fakes the server inside the pod and returns host and port.
func sandboxServer(t *testing.T, handler http.HandlerFunc) (string, int) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func newExecutor(t *testing.T, c client.Client, port int) *Executor {
	t.Helper()
	e, err := New(c, Config{
		Namespace:        testNamespace,
		Templates:        map[sandbox.Language]string{sandbox.Python: "python-sandbox"},
		NetworkTemplates: map[sandbox.Language]string{sandbox.Python: "python-sandbox-egress"},
		Port:             port,
		ClaimTimeout:     2 * time.Second,
		Timeout:          10 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestExecute(t *testing.T) {
	var got executeRequest
	host, port := sandboxServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Errorf("path = %q, want /execute", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(executeResponse{Status: "success", Stdout: "4\n", ExitCode: 0, ExecutionTimeMs: 12})
	})

	c := newFakeClient(t)
	fixedClaimName(t, "claim-ok")
	readySandbox(t, c, "claim-ok", host)

	res, err := newExecutor(t, c, port).Execute(context.Background(), &sandbox.ExecutionRequest{
		Code:     "print(2+2)",
		Language: sandbox.Python,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ExitCode != 0 || res.Stdout != "4\n" || res.Duration != 12*time.Millisecond {
		t.Errorf("result = %+v", res)
	}
	if got.Code != "print(2+2)" || got.TimeoutSeconds != 5 {
		t.Errorf("request = %+v", got)
	}

	// The claim is released after the run.
	claim := &extensionsv1alpha1.SandboxClaim{}
	err = c.Get(context.Background(), client.ObjectKey{Name: "claim-ok", Namespace: testNamespace}, claim)
	if err == nil {
		t.Error("SandboxClaim still exists after execution")
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	host, port := sandboxServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{Status: "error", Stderr: "ValueError: bad", ExitCode: 1})
	})
	c := newFakeClient(t)
	fixedClaimName(t, "claim-fail")
	readySandbox(t, c, "claim-fail", host)

	res, err := newExecutor(t, c, port).Execute(context.Background(), &sandbox.ExecutionRequest{
		Code:     "raise ValueError('bad')",
		Language: sandbox.Python,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ExitCode != 1 || res.Stderr != "ValueError: bad" {
		t.Errorf("result = %+v", res)
	}
}

func TestTemplateSelection(t *testing.T) {
	e := newExecutor(t, newFakeClient(t), DefaultPort)

	tests := []struct {
		name    string
		req     sandbox.ExecutionRequest
		want    string
		wantErr error
	}{
		{"default", sandbox.ExecutionRequest{Language: sandbox.Python}, "python-sandbox", nil},
		{"networking", sandbox.ExecutionRequest{Language: sandbox.Python, EnableNetworking: true}, "python-sandbox-egress", nil},
		{"no template", sandbox.ExecutionRequest{Language: sandbox.Bash}, "", ErrNoTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.template(&tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("template = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkingWithoutNetworkTemplate(t *testing.T) {
	c := newFakeClient(t)
	e := newExecutor(t, c, DefaultPort)
	e.cfg.NetworkTemplates = nil

	_, err := e.Execute(context.Background(), &sandbox.ExecutionRequest{Code: "1", Language: sandbox.Python, EnableNetworking: true})
	if !errors.Is(err, ErrNoTemplate) {
		t.Fatalf("err = %v, want ErrNoTemplate", err)
	}

	claims := &extensionsv1alpha1.SandboxClaimList{}
	if err := c.List(context.Background(), claims); err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(claims.Items) != 0 {
		t.Errorf("%d claims created, want none", len(claims.Items))
	}
}

func TestClaimTimeoutReleasesClaim(t *testing.T) {
	c := newFakeClient(t)
	fixedClaimName(t, "claim-stuck")
	e := newExecutor(t, c, DefaultPort)
	e.cfg.ClaimTimeout = 600 * time.Millisecond

	_, err := e.Execute(context.Background(), &sandbox.ExecutionRequest{Code: "1", Language: sandbox.Python})
	if !errors.Is(err, ErrClaimTimeout) {
		t.Fatalf("err = %v, want ErrClaimTimeout", err)
	}

	claim := &extensionsv1alpha1.SandboxClaim{}
	if err := c.Get(context.Background(), client.ObjectKey{Name: "claim-stuck", Namespace: testNamespace}, claim); err == nil {
		t.Error("SandboxClaim not deleted after timeout")
	}
}

func TestAtCapacity(t *testing.T) {
	host, port := sandboxServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newFakeClient(t)
	fixedClaimName(t, "claim-busy")
	readySandbox(t, c, "claim-busy", host)

	_, err := newExecutor(t, c, port).Execute(context.Background(), &sandbox.ExecutionRequest{Code: "1", Language: sandbox.Python})
	if !errors.Is(err, ErrAtCapacity) {
		t.Fatalf("err = %v, want ErrAtCapacity", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Config{Templates: map[sandbox.Language]string{sandbox.Python: "t"}}); err == nil {
		t.Error("expected error without client")
	}
	if _, err := New(newFakeClient(t), Config{}); err == nil {
		t.Error("expected error without templates")
	}
}

func TestExecutorDiscardsFiles(t *testing.T) {
	if sandbox.KeepsFiles(newExecutor(t, newFakeClient(t), DefaultPort)) {
		t.Error("every kubernetes execution runs in a freshly claimed pod")
	}
}
