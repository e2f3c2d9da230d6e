package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test plan for FrontendBuilder:
// 1. Build compiles for js/wasm and copies the loader
// 2. The older misc/wasm loader location is used as a fallback
// 3. Compiler failures include the compiler output
// 4. A missing loader is reported

type call struct {
	dir  string
	env  []string
	args []string
}

// fakeRunner answers "go build" by writing the output file and "go env GOROOT"
// with a fixed directory.
type fakeRunner struct {
	goroot   string
	buildErr error
	calls    []call
}

func (r *fakeRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{dir: dir, env: env, args: append([]string{name}, args...)})

	switch args[0] {
	case "build":
		if r.buildErr != nil {
			return []byte("cmd/frontend/main.go:1: syntax error"), r.buildErr
		}
		return nil, os.WriteFile(args[2], []byte("\x00asm"), 0o644)
	case "env":
		return []byte(r.goroot + "\n"), nil
	}
	return nil, errors.New("unexpected command")
}

func fakeGoroot(t *testing.T, rel string) string {
	t.Helper()
	goroot := t.TempDir()
	path := filepath.Join(goroot, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// loader"), 0o644))
	return goroot
}

func TestFrontendBuilder_Build(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "web")
	runner := &fakeRunner{goroot: fakeGoroot(t, "lib/wasm/wasm_exec.js")}

	b := NewFrontendBuilder(root, out, WithRunner(runner))
	artifacts, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "main.wasm"), artifacts.WASMPath)
	assert.Equal(t, filepath.Join(out, "wasm_exec.js"), artifacts.LoaderPath)

	data, err := os.ReadFile(artifacts.WASMPath)
	require.NoError(t, err)
	assert.Equal(t, "\x00asm", string(data))

	data, err = os.ReadFile(artifacts.LoaderPath)
	require.NoError(t, err)
	assert.Equal(t, "// loader", string(data))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, root, runner.calls[0].dir)
	assert.Equal(t, []string{"GOOS=js", "GOARCH=wasm"}, runner.calls[0].env)
	assert.Equal(t, "./cmd/frontend", runner.calls[0].args[len(runner.calls[0].args)-1])
	assert.Equal(t, []string{"go", "env", "GOROOT"}, runner.calls[1].args)

	// no temp files are left behind
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFrontendBuilder_LegacyLoader(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{goroot: fakeGoroot(t, "misc/wasm/wasm_exec.js")}

	b := NewFrontendBuilder(root, filepath.Join(root, "web"), WithRunner(runner), WithPackage("./cmd/other"))
	artifacts, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, artifacts.LoaderPath)
	assert.Equal(t, "./cmd/other", runner.calls[0].args[len(runner.calls[0].args)-1])
}

func TestFrontendBuilder_Errors(t *testing.T) {
	// Test: compiler output is part of the error
	t.Run("build failure", func(t *testing.T) {
		root := t.TempDir()
		runner := &fakeRunner{buildErr: errors.New("exit status 1")}

		_, err := NewFrontendBuilder(root, filepath.Join(root, "web"), WithRunner(runner)).Build(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "go build failed")
		assert.Contains(t, err.Error(), "syntax error")
		assert.NoFileExists(t, filepath.Join(root, "web", "main.wasm"))
	})

	// Test: missing loader
	t.Run("missing loader", func(t *testing.T) {
		root := t.TempDir()
		runner := &fakeRunner{goroot: t.TempDir()}

		_, err := NewFrontendBuilder(root, filepath.Join(root, "web"), WithRunner(runner)).Build(context.Background())
		assert.ErrorContains(t, err, "wasm_exec.js not found")
	})
}
