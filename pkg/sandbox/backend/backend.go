// Package backend builds the configured sandbox.Executor.
package backend

import (
	"fmt"

	"github.com/rhuss/sandboxagent/pkg/config"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/sandbox/docker"
	"github.com/rhuss/sandboxagent/pkg/sandbox/hosted"
	"github.com/rhuss/sandboxagent/pkg/sandbox/kubernetes"
)

// New creates the executor selected by cfg.Backend.
func New(cfg config.SandboxConfig) (sandbox.Executor, error) {
	switch cfg.Backend {
	case "hosted":
		return hosted.New(hosted.Config{
			APIKey:  cfg.Hosted.APIKey,
			BaseURL: cfg.Hosted.BaseURL,
			Timeout: cfg.Hosted.Timeout,
		})
	case "docker":
		dcfg, err := DockerConfig(cfg.Docker)
		if err != nil {
			return nil, err
		}
		return docker.New(dcfg)
	case "kubernetes":
		kcfg, err := KubernetesConfig(cfg.Kubernetes)
		if err != nil {
			return nil, err
		}
		return kubernetes.NewInCluster(kcfg)
	}
	return nil, fmt.Errorf("unknown sandbox backend %q", cfg.Backend)
}

// DockerConfig converts the file settings to a docker.Config.
func DockerConfig(cfg config.DockerConfig) (docker.Config, error) {
	images, err := languageMap("sandbox.docker.images", cfg.Images)
	if err != nil {
		return docker.Config{}, err
	}
	return docker.Config{
		Images:      images,
		MemoryBytes: cfg.MemoryMB * 1024 * 1024,
		NanoCPUs:    int64(cfg.CPUs * 1e9),
		Timeout:     cfg.Timeout,
		SkipPull:    cfg.SkipPull,
	}, nil
}

// KubernetesConfig converts the file settings to a kubernetes.Config.
func KubernetesConfig(cfg config.KubernetesConfig) (kubernetes.Config, error) {
	templates, err := languageMap("sandbox.kubernetes.templates", cfg.Templates)
	if err != nil {
		return kubernetes.Config{}, err
	}
	network, err := languageMap("sandbox.kubernetes.network_templates", cfg.NetworkTemplates)
	if err != nil {
		return kubernetes.Config{}, err
	}
	return kubernetes.Config{
		Namespace:        cfg.Namespace,
		Templates:        templates,
		NetworkTemplates: network,
		Port:             cfg.Port,
		ClaimTimeout:     cfg.ClaimTimeout,
		Timeout:          cfg.Timeout,
	}, nil
}

func languageMap(field string, in map[string]string) (map[sandbox.Language]string, error) {
	out := make(map[sandbox.Language]string, len(in))
	for tag, v := range in {
		lang, err := sandbox.ParseLanguage(tag)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out[lang] = v
	}
	return out, nil
}
