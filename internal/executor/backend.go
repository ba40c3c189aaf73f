package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/devforge-labs/devforge/internal/extension"
	"github.com/devforge-labs/devforge/internal/platform"
)

// Backend executes a single install step or hook command for an
// extension. dir is the extension's catalog directory, where bundled
// scripts and config files live.
type Backend interface {
	Run(ctx context.Context, ext *extension.Extension, step extension.InstallSpec, dir string) error
	Hook(ctx context.Context, command, dir string) error
}

// ProcessBackend runs install steps as subprocesses of the local
// toolchain: apt-get, mise, npm, curl, and bash.
type ProcessBackend struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcessBackend returns a backend writing subprocess output to the
// given streams. Nil streams discard output.
func NewProcessBackend(stdout, stderr io.Writer) *ProcessBackend {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &ProcessBackend{Stdout: stdout, Stderr: stderr}
}

// Run dispatches on the step's method. Steps are single-method; hybrid
// specs are expanded by the caller before reaching the backend.
func (b *ProcessBackend) Run(ctx context.Context, ext *extension.Extension, step extension.InstallSpec, dir string) error {
	switch step.Method {
	case extension.MethodApt:
		return b.runApt(ctx, step.Apt)
	case extension.MethodMise:
		return b.runMise(ctx, step.Mise, dir)
	case extension.MethodNpm:
		return b.runNpm(ctx, step.Npm)
	case extension.MethodBinary:
		return b.runBinary(ctx, step.Binary)
	case extension.MethodScript:
		return b.runScript(ctx, step.Script, dir)
	default:
		return fmt.Errorf("unsupported install method %q", step.Method)
	}
}

// Hook runs a lifecycle hook command through the shell in the
// extension's directory.
func (b *ProcessBackend) Hook(ctx context.Context, command, dir string) error {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = dir
	return b.exec(cmd)
}

func (b *ProcessBackend) runApt(ctx context.Context, spec *extension.AptSpec) error {
	for _, repo := range spec.Repositories {
		if err := b.addAptRepository(ctx, repo); err != nil {
			return err
		}
	}
	if spec.ShouldUpdateFirst() || len(spec.Repositories) > 0 {
		if err := b.exec(exec.CommandContext(ctx, "apt-get", "update")); err != nil {
			return fmt.Errorf("apt-get update: %w", err)
		}
	}
	args := append([]string{"install", "-y", "--no-install-recommends"}, spec.Packages...)
	if err := b.exec(exec.CommandContext(ctx, "apt-get", args...)); err != nil {
		return fmt.Errorf("apt-get install %s: %w", strings.Join(spec.Packages, " "), err)
	}
	return nil
}

func (b *ProcessBackend) addAptRepository(ctx context.Context, repo extension.AptRepository) error {
	name := repo.Name
	if name == "" {
		name = "devforge"
	}
	keyring := filepath.Join("/etc/apt/keyrings", name+".gpg")
	if err := os.MkdirAll(filepath.Dir(keyring), 0o755); err != nil {
		return fmt.Errorf("prepare apt keyring dir: %w", err)
	}
	fetch := fmt.Sprintf("curl -fsSL %s | gpg --dearmor --yes -o %s", repo.GpgKey, keyring)
	if err := b.Hook(ctx, fetch, ""); err != nil {
		return fmt.Errorf("fetch apt key for %s: %w", name, err)
	}
	sources := filepath.Join("/etc/apt/sources.list.d", name+".list")
	if err := os.WriteFile(sources, []byte(repo.Sources+"\n"), 0o644); err != nil {
		return fmt.Errorf("write apt sources for %s: %w", name, err)
	}
	return nil
}

func (b *ProcessBackend) runMise(ctx context.Context, spec *extension.MiseSpec, dir string) error {
	cmd := exec.CommandContext(ctx, "mise", "install", "--yes")
	cmd.Dir = dir
	if spec.ConfigFile != "" {
		cfg := spec.ConfigFile
		if !filepath.IsAbs(cfg) {
			cfg = filepath.Join(dir, cfg)
		}
		cmd.Dir = filepath.Dir(cfg)
	}
	if err := b.exec(cmd); err != nil {
		return fmt.Errorf("mise install: %w", err)
	}
	return nil
}

func (b *ProcessBackend) runNpm(ctx context.Context, spec *extension.NpmSpec) error {
	args := append([]string{"install", "--global"}, spec.Packages...)
	if err := b.exec(exec.CommandContext(ctx, "npm", args...)); err != nil {
		return fmt.Errorf("npm install %s: %w", strings.Join(spec.Packages, " "), err)
	}
	return nil
}

func (b *ProcessBackend) runBinary(ctx context.Context, spec *extension.BinarySpec) error {
	for _, dl := range spec.Downloads {
		dest := dl.Destination
		if dest == "" {
			dest = filepath.Join("/usr/local/bin", dl.Name)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("prepare %s: %w", dest, err)
		}
		if dl.Extract {
			script := fmt.Sprintf("curl -fsSL %s | tar -xz -C %s", dl.URL, filepath.Dir(dest))
			if err := b.Hook(ctx, script, ""); err != nil {
				return fmt.Errorf("download %s: %w", dl.Name, err)
			}
			continue
		}
		if err := b.exec(exec.CommandContext(ctx, "curl", "-fsSL", "-o", dest, dl.URL)); err != nil {
			return fmt.Errorf("download %s: %w", dl.Name, err)
		}
		if err := platform.Chmod(dest, 0o755); err != nil {
			return fmt.Errorf("chmod %s: %w", dest, err)
		}
	}
	return nil
}

func (b *ProcessBackend) runScript(ctx context.Context, spec *extension.ScriptSpec, dir string) error {
	path := spec.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	cmd := exec.CommandContext(ctx, "bash", append([]string{path}, spec.Args...)...)
	cmd.Dir = dir
	if err := b.exec(cmd); err != nil {
		return fmt.Errorf("script %s: %w", spec.Path, err)
	}
	return nil
}

func (b *ProcessBackend) exec(cmd *exec.Cmd) error {
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr
	return cmd.Run()
}
