package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

const validConfig = `
protocols:
  axi4: {data_width: 64}
endpoints:
  - name: cpu
    type: master
    protocol: axi4
  - name: mem
    type: slave
    protocol: axi4
    addr_range: ["0x8000_0000", "0x8FFF_FFFF"]
top:
  export_axi: [cpu]
`

const invalidConfig = `
protocols: {}
endpoints:
  - name: cpu
    type: master
    protocol: axi
  - name: mem
    type: slave
`

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "topgen", root.Name())
	assert.NotNil(t, root.PersistentFlags().Lookup("schema"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, expected := range []string{"validate", "generate", "watch", "schema"} {
		assert.Contains(t, names, expected, "Expected subcommand %s to be registered", expected)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yml", validConfig)
	bad := writeFile(t, dir, "bad.yml", invalidConfig)

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantOutput string
	}{
		{
			name:       "valid file",
			args:       []string{"validate", good},
			wantOutput: good + ": valid\n",
		},
		{
			name:    "invalid file",
			args:    []string{"validate", bad},
			wantErr: ErrValidationFailed,
			wantOutput: bad + ": invalid (2 errors)\n" +
				"  - Endpoint 'cpu' references undefined protocol 'axi'\n" +
				"  - Slave endpoint 'mem' must have 'addr_range'\n",
		},
		{
			name:       "results keep argument order",
			args:       []string{"validate", "-j", "2", bad, good},
			wantErr:    ErrValidationFailed,
			wantOutput: bad + ": invalid (2 errors)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, strings.HasPrefix(stdout, tt.wantOutput), "output:\n%s", stdout)
		})
	}
}

func TestValidateCommand_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yml", validConfig)
	bad := writeFile(t, dir, "bad.yml", invalidConfig)

	stdout, _, err := execute(t, "validate", "-o", "json", good, bad)
	assert.ErrorIs(t, err, ErrValidationFailed)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.Equal(t, fileResult{File: good, Valid: true, Errors: []string{}}, results[0])
	assert.Equal(t, bad, results[1].File)
	assert.False(t, results[1].Valid)
	assert.Len(t, results[1].Errors, 2)
}

func TestValidateCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yml", validConfig)

	_, _, err := execute(t, "validate")
	assert.Error(t, err)

	_, _, err = execute(t, "validate", "-o", "xml", good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")

	_, _, err = execute(t, "validate", filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")

	_, _, err = execute(t, "validate", "--log-level", "loud", good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidateCommand_CustomSchema(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yml", validConfig)
	schema := writeFile(t, dir, "schema.json", `{"type": "object", "required": ["routers"]}`)

	stdout, _, err := execute(t, "--schema", schema, "validate", good)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, stdout, "  - root: ")

	_, _, err = execute(t, "--schema", filepath.Join(dir, "none.json"), "validate", good)
	assert.Error(t, err)
}

func TestValidateFiles_Concurrent(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := range 20 {
		content := validConfig
		if i%3 == 0 {
			content = invalidConfig
		}
		files = append(files, writeFile(t, dir, "cfg"+string(rune('a'+i))+".yml", content))
	}

	gate, err := validation.DefaultSchemaGate()
	require.NoError(t, err)

	results, err := validateFiles(context.Background(), validation.NewConfigValidator(gate), files, 4)
	require.NoError(t, err)
	require.Len(t, results, len(files))
	for i, r := range results {
		assert.Equal(t, files[i], r.File)
		assert.Equal(t, i%3 != 0, r.Valid, r.File)
	}
}

func TestSchemaCommand(t *testing.T) {
	stdout, _, err := execute(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &schema))
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", schema["$schema"])
	assert.True(t, strings.HasSuffix(stdout, "}\n"))
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "noc.yml", validConfig)
	bin := writeFile(t, dir, "floogen", "#!/bin/sh\n"+
		"while [ $# -gt 0 ]; do case \"$1\" in -o) out=\"$2\"; shift;; esac; shift; done\n"+
		"echo 'module floo_noc; endmodule' > \"$out/floo_noc.sv\"\n"+
		"echo generated\n")
	require.NoError(t, os.Chmod(bin, 0o755))
	outDir := filepath.Join(dir, "out")

	stdout, _, err := execute(t, "generate", "-c", cfg, "-j", "job_cli", "-o", outDir, "--floogen", bin)
	require.NoError(t, err)

	assert.Contains(t, stdout, "job:    job_cli")
	assert.FileExists(t, filepath.Join(outDir, "job_cli", "job_cli_rtl.zip"))
	assert.FileExists(t, filepath.Join(outDir, "job_cli", "rtl_output", "floo_noc.sv"))
	assert.FileExists(t, filepath.Join(outDir, "job_cli", "config.yml"))
}

func TestGenerateCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "noc.yml", validConfig)
	bad := writeFile(t, dir, "bad.yml", invalidConfig)
	failing := writeFile(t, dir, "floogen-fail", "#!/bin/sh\necho boom >&2\nexit 3\n")
	require.NoError(t, os.Chmod(failing, 0o755))
	outDir := filepath.Join(dir, "out")

	t.Run("missing config flag", func(t *testing.T) {
		_, _, err := execute(t, "generate")
		assert.Error(t, err)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		stdout, _, err := execute(t, "generate", "-c", bad, "-o", outDir)
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, stdout, "Slave endpoint 'mem' must have 'addr_range'")
		assert.NoDirExists(t, outDir)
	})

	t.Run("floogen exits non-zero", func(t *testing.T) {
		_, stderr, err := execute(t, "generate", "-c", good, "-j", "job_fail", "-o", outDir, "--floogen", failing)
		require.Error(t, err)
		assert.Equal(t, "floogen exited with code 3", err.Error())
		assert.Contains(t, stderr, "boom")
	})

	t.Run("floogen missing", func(t *testing.T) {
		_, _, err := execute(t, "generate", "-c", good, "-o", outDir, "--floogen", filepath.Join(dir, "nope"))
		require.Error(t, err)
		assert.Equal(t, "floogen command not found. Please ensure floogen is installed.", err.Error())
	})
}

func TestConfigWatcher(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "noc.yml", validConfig)
	writeFile(t, dir, "notes.txt", "ignored")

	gate, err := validation.DefaultSchemaGate()
	require.NoError(t, err)

	out := &syncBuffer{}
	w := &configWatcher{
		validator: validation.NewConfigValidator(gate),
		out:       out,
		logger:    observability.DiscardLogger(),
		debounce:  20 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, dir) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "watching "+dir)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), filepath.Join(dir, "noc.yml")+": valid")
	assert.NotContains(t, out.String(), "notes.txt")

	writeFile(t, dir, "broken.yaml", invalidConfig)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), filepath.Join(dir, "broken.yaml")+": invalid (2 errors)")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestConfigWatcher_MissingPath(t *testing.T) {
	w := &configWatcher{out: &syncBuffer{}, logger: observability.DiscardLogger()}
	assert.Error(t, w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing")))
}

func TestMatchesConfig(t *testing.T) {
	assert.True(t, matchesConfig("/a/noc.yml", ""))
	assert.True(t, matchesConfig("/a/noc.yaml", ""))
	assert.True(t, matchesConfig("/a/noc.json", ""))
	assert.False(t, matchesConfig("/a/noc.txt", ""))
	assert.True(t, matchesConfig("/a/noc.txt", "/a/noc.txt"))
	assert.False(t, matchesConfig("/a/other.yml", "/a/noc.yml"))
}
