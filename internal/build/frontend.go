// Package build compiles the browser frontend to WebAssembly
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPackage is the frontend main package, relative to the project root.
	DefaultPackage = "./cmd/frontend"

	wasmFile   = "main.wasm"
	loaderFile = "wasm_exec.js"
)

// loaderLocations are searched below GOROOT, newest layout first.
var loaderLocations = []string{
	filepath.Join("lib", "wasm", loaderFile),
	filepath.Join("misc", "wasm", loaderFile),
}

// CommandRunner runs an external command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// Artifacts are the files written by a successful build
type Artifacts struct {
	WASMPath   string
	LoaderPath string
	Duration   time.Duration
}

// FrontendBuilder builds main.wasm and copies the matching wasm_exec.js into
// the assets directory served by the web server.
type FrontendBuilder struct {
	projectRoot string
	outputDir   string
	pkg         string
	runner      CommandRunner
	logger      zerolog.Logger
}

// Option configures a FrontendBuilder
type Option func(*FrontendBuilder)

// WithPackage sets the main package to compile. Default DefaultPackage.
func WithPackage(pkg string) Option {
	return func(b *FrontendBuilder) {
		b.pkg = pkg
	}
}

// WithRunner replaces the command runner
func WithRunner(runner CommandRunner) Option {
	return func(b *FrontendBuilder) {
		b.runner = runner
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(b *FrontendBuilder) {
		b.logger = logger
	}
}

// NewFrontendBuilder creates a builder writing into outputDir
func NewFrontendBuilder(projectRoot, outputDir string, opts ...Option) *FrontendBuilder {
	b := &FrontendBuilder{
		projectRoot: projectRoot,
		outputDir:   outputDir,
		pkg:         DefaultPackage,
		runner:      execRunner{},
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.logger.With().Str("component", "frontend-builder").Logger()
	return b
}

// Build compiles the frontend. main.wasm is replaced atomically so a running
// asset watcher sees a single change.
func (b *FrontendBuilder) Build(ctx context.Context) (*Artifacts, error) {
	start := time.Now()

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.outputDir, ".main-*.wasm")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	b.logger.Debug().
		Str("package", b.pkg).
		Str("output", tmpPath).
		Msg("compiling frontend")

	out, err := b.runner.Run(ctx, b.projectRoot, []string{"GOOS=js", "GOARCH=wasm"},
		"go", "build", "-o", tmpPath, b.pkg)
	if err != nil {
		return nil, fmt.Errorf("go build failed: %w\n%s", err, bytes.TrimSpace(out))
	}

	wasmPath := filepath.Join(b.outputDir, wasmFile)
	if err := os.Rename(tmpPath, wasmPath); err != nil {
		return nil, fmt.Errorf("failed to move %s into place: %w", wasmFile, err)
	}

	loaderPath, err := b.copyLoader(ctx)
	if err != nil {
		return nil, err
	}

	artifacts := &Artifacts{
		WASMPath:   wasmPath,
		LoaderPath: loaderPath,
		Duration:   time.Since(start),
	}

	b.logger.Info().
		Str("wasm", wasmPath).
		Dur("duration", artifacts.Duration).
		Msg("frontend built")

	return artifacts, nil
}

func (b *FrontendBuilder) copyLoader(ctx context.Context) (string, error) {
	out, err := b.runner.Run(ctx, b.projectRoot, nil, "go", "env", "GOROOT")
	if err != nil {
		return "", fmt.Errorf("failed to locate GOROOT: %w", err)
	}
	goroot := strings.TrimSpace(string(out))

	for _, rel := range loaderLocations {
		src := filepath.Join(goroot, rel)
		if _, err := os.Stat(src); err != nil {
			continue
		}

		dst := filepath.Join(b.outputDir, loaderFile)
		if err := copyFile(src, dst); err != nil {
			return "", fmt.Errorf("failed to copy %s: %w", loaderFile, err)
		}
		return dst, nil
	}

	return "", fmt.Errorf("%s not found in GOROOT %s", loaderFile, goroot)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
