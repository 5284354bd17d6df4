package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"jls/internal/testutil"
)

// execute runs the root command with args and fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestConfigInit(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "config", "init", "--root", root)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	path := filepath.Join(root, ".jls", "config.toml")
	if !strings.Contains(out, path) {
		t.Errorf("output = %q, want path %s", out, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "javac") {
		t.Errorf("config file missing compiler command:\n%s", data)
	}

	if _, err := execute(t, "config", "init", "--root", root); err == nil {
		t.Error("second config init should refuse to overwrite")
	}
	if _, err := execute(t, "config", "init", "--root", root, "--force"); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

func TestConfigShowDiff(t *testing.T) {
	root := t.TempDir()
	t.Setenv("JLS_INDEX_WORKERS", "9")

	out, err := execute(t, "config", "show", "--root", root, "--format", "json", "--diff")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var resp ConfigShowResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if !resp.UsedDefaults || len(resp.EnvOverrides) != 1 {
		t.Errorf("response = %+v", resp)
	}
	index, ok := resp.Config["index"].(map[string]interface{})
	if !ok || index["workers"] != float64(9) {
		t.Errorf("diff = %v, want index.workers", resp.Config)
	}
	if _, ok := resp.Config["logging"]; ok {
		t.Errorf("diff should not contain unchanged sections: %v", resp.Config)
	}
}

func TestClasspathPlainJavac(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "classpath", "--root", root, "--format", "json")
	if err != nil {
		t.Fatalf("classpath: %v", err)
	}
	var resp ClasspathResponseCLI
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if resp.Kind != "plain javac" || len(resp.Entries) != 0 || resp.Manifest != "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.OutputDirectory != filepath.Join(root, "target", "classes") {
		t.Errorf("OutputDirectory = %q", resp.OutputDirectory)
	}
}

func TestIndexExplicitClasspath(t *testing.T) {
	root := t.TempDir()
	classes := t.TempDir()
	path := filepath.Join(classes, "com", "example", "Util.class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data := testutil.SimpleClass("com/example/Util", map[string]string{"max": "(II)I"})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "index", "--root", root, "--classpath", classes, "--format", "json")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	var resp IndexResponseCLI
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if len(resp.Classes) != 1 || resp.Classes[0].Name != "com.example.Util" {
		t.Fatalf("classes = %+v", resp.Classes)
	}
	if m := resp.Classes[0].Methods; len(m) != 1 || m[0] != "public int max(int, int)" {
		t.Errorf("methods = %v", m)
	}

	out, err = execute(t, "index", "--root", root, "--classpath", classes, "--format", "yaml")
	if err != nil {
		t.Fatalf("index yaml: %v", err)
	}
	if !strings.Contains(out, "name: com.example.Util") {
		t.Errorf("yaml output = %s", out)
	}
}

func TestCompileReportsErrors(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	root := t.TempDir()
	javac := filepath.Join(t.TempDir(), "javac")
	script := `#!/bin/sh
for f in "$@"; do
  case "$f" in
    *.java) printf '%s:2: error: not a statement\n  oops\n  ^\n' "$f" >&2 ;;
  esac
done
exit 1
`
	if err := os.WriteFile(javac, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(root, "src", "A.java")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("class A {\n  oops\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JLS_COMPILER_COMMAND", javac)

	out, err := execute(t, "compile", "--root", root, "--format", "json")
	if err == nil || !strings.Contains(err.Error(), "1 errors") {
		t.Errorf("compile error = %v, want a report of 1 error", err)
	}
	var resp CompileResponseCLI
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if resp.Total != 1 || len(resp.Files) != 1 || resp.Files[0].Path != src {
		t.Fatalf("response = %+v", resp)
	}
	if e := resp.Files[0].Errors[0]; e.Row != 2 || e.Column != 2 || e.Message != "not a statement" {
		t.Errorf("error = %+v", e)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "jls version ") {
		t.Errorf("version output = %q", out)
	}
}
