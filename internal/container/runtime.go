// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs extraction tools that ship as container images or
// local binaries. Docker is preferred; Podman is used when Docker is absent.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Executor runs external commands. The production implementation is backed
// by os/exec; tests substitute a fake.
type Executor interface {
	// LookPath resolves a binary on PATH.
	LookPath(file string) (string, error)

	// Run executes a command and discards its output.
	Run(ctx context.Context, name string, args ...string) error

	// Pipe executes a command with stdin and stdout attached. Anything the
	// command writes to stderr is folded into the returned error.
	Pipe(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (osExecutor) Pipe(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// OSExecutor returns the Executor backed by os/exec.
func OSExecutor() Executor {
	return osExecutor{}
}

// Runtime is a container engine able to run an image as a filter from
// stdin to stdout.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the binary is on PATH and answers "info".
	Available(ctx context.Context) bool

	// ImageExists returns nil when the image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts a throwaway container of image without network access,
	// streaming stdin in and collecting stdout.
	Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error
}

// engine implements Runtime for docker and podman, which differ only in the
// binary name and the image-check subcommand.
type engine struct {
	bin        string
	imageCheck []string
	exec       Executor
}

func (e *engine) Name() string { return e.bin }

func (e *engine) Available(ctx context.Context) bool {
	if _, err := e.exec.LookPath(e.bin); err != nil {
		return false
	}
	return e.exec.Run(ctx, e.bin, "info") == nil
}

func (e *engine) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, e.imageCheck...), image)
	if err := e.exec.Run(ctx, e.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, e.bin, err)
	}
	return nil
}

func (e *engine) Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error {
	args := []string{"run", "--rm", "-i", "--network", "none", image}
	if err := e.exec.Pipe(ctx, e.bin, args, stdin, stdout); err != nil {
		return fmt.Errorf("running %s container %s: %w", e.bin, image, err)
	}
	return nil
}

func newDocker(x Executor) *engine {
	return &engine{bin: binDocker, imageCheck: []string{"image", "inspect"}, exec: x}
}

func newPodman(x Executor) *engine {
	return &engine{bin: binPodman, imageCheck: []string{"image", "exists"}, exec: x}
}

// DetectRuntimeWith tries docker first and falls back to podman, running
// their availability checks through x.
func DetectRuntimeWith(ctx context.Context, x Executor) (Runtime, error) {
	for _, rt := range []*engine{newDocker(x), newPodman(x)} {
		if rt.Available(ctx) {
			return rt, nil
		}
	}
	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
