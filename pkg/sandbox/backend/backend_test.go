package backend

import (
	"testing"
	"time"

	"github.com/rhuss/sandboxagent/pkg/config"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

func TestNewHosted(t *testing.T) {
	cfg := config.Defaults().Sandbox
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without an API key")
	}

	cfg.Hosted.APIKey = "cg"
	exec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if exec.Name() != "hosted" {
		t.Errorf("Name() = %q, want hosted", exec.Name())
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Defaults().Sandbox
	cfg.Backend = "firecracker"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestDockerConfig(t *testing.T) {
	got, err := DockerConfig(config.DockerConfig{
		Images:   map[string]string{"py": "python:3.11-slim", "js": "node:20"},
		MemoryMB: 512,
		CPUs:     0.5,
		Timeout:  30 * time.Second,
	})
	if err != nil {
		t.Fatalf("DockerConfig: %v", err)
	}
	if got.MemoryBytes != 512*1024*1024 {
		t.Errorf("MemoryBytes = %d", got.MemoryBytes)
	}
	if got.NanoCPUs != 500_000_000 {
		t.Errorf("NanoCPUs = %d", got.NanoCPUs)
	}
	if got.Images[sandbox.Python] != "python:3.11-slim" || got.Images[sandbox.JavaScript] != "node:20" {
		t.Errorf("Images = %v", got.Images)
	}
	if got.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", got.Timeout)
	}

	if _, err := DockerConfig(config.DockerConfig{Images: map[string]string{"cobol": "x"}}); err == nil {
		t.Error("expected error for unknown image language")
	}
}

func TestKubernetesConfig(t *testing.T) {
	got, err := KubernetesConfig(config.KubernetesConfig{
		Namespace:        "agents",
		Templates:        map[string]string{"python": "py-tpl", "bash": "sh-tpl"},
		NetworkTemplates: map[string]string{"python": "py-egress"},
		Port:             9000,
		ClaimTimeout:     time.Minute,
	})
	if err != nil {
		t.Fatalf("KubernetesConfig: %v", err)
	}
	if got.Namespace != "agents" || got.Port != 9000 || got.ClaimTimeout != time.Minute {
		t.Errorf("config = %+v", got)
	}
	if got.Templates[sandbox.Python] != "py-tpl" || got.Templates[sandbox.Bash] != "sh-tpl" {
		t.Errorf("Templates = %v", got.Templates)
	}
	if got.NetworkTemplates[sandbox.Python] != "py-egress" {
		t.Errorf("NetworkTemplates = %v", got.NetworkTemplates)
	}

	_, err = KubernetesConfig(config.KubernetesConfig{NetworkTemplates: map[string]string{"cobol": "x"}})
	if err == nil {
		t.Error("expected error for unknown template language")
	}
}
