package backend

import (
	"fmt"
	"strings"

	"github.com/apparentlymart/go-shquot/shquot"
)

// ContainerKind names a ContainerRuntime implementation.
type ContainerKind string

const (
	ContainerNone   ContainerKind = "none"
	ContainerDocker ContainerKind = "docker"
	ContainerPodman ContainerKind = "podman"
)

// ParseContainerKind validates a container runtime name.
func ParseContainerKind(s string) (ContainerKind, error) {
	switch k := ContainerKind(strings.ToLower(s)); k {
	case ContainerNone, "":
		return ContainerNone, nil
	case ContainerDocker, ContainerPodman:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown container runtime %q", ErrUnsupportedBackend, s)
	}
}

// ContainerRuntime rewrites an assembled command so that it runs inside a
// container.
type ContainerRuntime interface {
	Cmd(raw string) string
}

// NoContainer runs commands directly on the host.
type NoContainer struct{}

// Cmd returns raw unchanged.
func (NoContainer) Cmd(raw string) string { return raw }

// EngineContainer wraps commands in `<engine> run` with the work root mounted
// at the same path, so every absolute path in the command stays valid.
type EngineContainer struct {
	Engine  ContainerKind
	Image   string
	Root    string
	WorkDir string
	Memory  string
}

// Cmd returns the engine invocation that runs raw with sh -c.
func (c EngineContainer) Cmd(raw string) string {
	argv := []string{
		string(c.Engine), "run", "--rm",
		"-v", c.Root + ":" + c.Root,
		"-w", c.WorkDir,
	}
	if c.Memory != "" {
		argv = append(argv, "--memory", c.Memory)
	}
	argv = append(argv, c.Image, "sh", "-c", raw)
	return shquot.POSIXShell(argv)
}
