package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestVcd2JSONE2E_Documents(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd2json")
	env := isolatedEnv(t)

	tests := []struct {
		name string
		file string
		args []string
		want string
	}{
		{
			name: "counter_numeric",
			file: "counter.vcd",
			want: `{"top":{"clk":[0,1,0,1],"count":[0,0,1,3],"sub":{"en":[1,1,1,1]}}}`,
		},
		{
			name: "counter_strings",
			file: "counter.vcd",
			args: []string{"--strings"},
			want: `{"top":{"clk":["0","1","0","1"],"count":["0000","0000","1","X1"],"sub":{"en":["1","1","1","1"]}}}`,
		},
		{
			name: "mixed_numeric",
			file: "mixed.vcd",
			want: `{"tb":{"data":[15,1],"data_mirror":[15,1],"state":[0,0],"temp":[0,0]}}`,
		},
		{
			name: "mixed_strings",
			file: "mixed.vcd",
			args: []string{"--strings"},
			want: `{"tb":{"data":["00001111","Z"],"data_mirror":["00001111","Z"],"state":["IDLE","RUN"],"temp":["0.5","1.25"]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--compact"}, tt.args...)
			args = append(args, filepath.Join(repoRoot, "testdata", "vcd", tt.file))
			stdout, stderr, err := runBinary(t, bin, env, nil, args...)
			if err != nil {
				t.Fatalf("vcd2json failed: %v\nstderr:\n%s", err, stderr)
			}
			if diff := cmp.Diff(tt.want+"\n", stdout); diff != "" {
				t.Fatalf("output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVcd2JSONE2E_Stdin(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd2json")

	dump, err := os.ReadFile(filepath.Join(repoRoot, "testdata", "vcd", "counter.vcd"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	stdout, stderr, err := runBinary(t, bin, isolatedEnv(t), dump, "--pretty")
	if err != nil {
		t.Fatalf("vcd2json failed: %v\nstderr:\n%s", err, stderr)
	}
	if !strings.HasPrefix(stdout, "{\n  \"top\": {\n") {
		t.Fatalf("expected two-space indented output, got:\n%s", stdout)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("parse output: %v", err)
	}
}

func TestVcd2JSONE2E_YAML(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd2json")

	stdout, stderr, err := runBinary(t, bin, isolatedEnv(t), nil, "--yaml",
		filepath.Join(repoRoot, "testdata", "vcd", "counter.vcd"))
	if err != nil {
		t.Fatalf("vcd2json failed: %v\nstderr:\n%s", err, stderr)
	}

	var got map[string]any
	if err := yaml.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("parse YAML: %v\n%s", err, stdout)
	}
	want := map[string]any{
		"top": map[string]any{
			"clk":   []any{0, 1, 0, 1},
			"count": []any{0, 0, 1, 3},
			"sub":   map[string]any{"en": []any{1, 1, 1, 1}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("YAML document (-want +got):\n%s", diff)
	}
}

func TestVcd2JSONE2E_Errors(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd2json")
	env := isolatedEnv(t)
	dir := t.TempDir()

	dumps := map[string]string{
		"duplicate.vcd": "$scope module tb $end $var wire 1 ! a $end $var wire 1 \" a $end $upscope $end $enddefinitions $end #0",
		"prefix.vcd":    "$scope module tb $end $var wire 1 ! a $end $upscope $end $var wire 1 \" tb $end $enddefinitions $end #0",
		"unknown.vcd":   "$scope module tb $end $var wire 1 ! a $end $upscope $end $enddefinitions $end #0 1?",
		"early.vcd":     "$scope module tb $end $var wire 1 ! a $end $upscope $end $enddefinitions $end 1!",
		"syntax.vcd":    "$scope module tb $end $var wire one ! a $end",
	}
	for name, body := range dumps {
		t.Run(strings.TrimSuffix(name, ".vcd"), func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write dump: %v", err)
			}
			stdout, stderr, err := runBinary(t, bin, env, nil, path)
			if err == nil {
				t.Fatalf("expected failure, got output:\n%s", stdout)
			}
			if stdout != "" {
				t.Fatalf("expected no document on failure, got:\n%s", stdout)
			}
			if !strings.HasPrefix(stderr, "Error: ") {
				t.Fatalf("expected Error: prefix on stderr, got:\n%s", stderr)
			}
		})
	}
}

func TestVcd2JSONE2E_Policies(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd2json")
	env := isolatedEnv(t)
	dump := filepath.Join(repoRoot, "testdata", "vcd", "counter.vcd")
	policies := filepath.Join(repoRoot, "policies")

	_, stderr, err := runBinary(t, bin, env, nil, "--compact", "--policy", policies, dump)
	if err != nil {
		t.Fatalf("info violations must not fail the default run: %v\nstderr:\n%s", err, stderr)
	}
	if !strings.Contains(stderr, "top.sub.en") || !strings.Contains(stderr, "constant_signal") {
		t.Fatalf("expected constant_signal for top.sub.en, stderr:\n%s", stderr)
	}

	cfgPath := filepath.Join(t.TempDir(), "strict.json")
	if err := os.WriteFile(cfgPath, []byte(`{"policy":{"failOn":"info"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	stdout, stderr, err := runBinary(t, bin, env, nil, "--compact", "-c", cfgPath, "--policy", policies, dump)
	if err == nil {
		t.Fatalf("expected failOn=info to fail the run, stderr:\n%s", stderr)
	}
	if stdout == "" {
		t.Fatalf("document should still be written when only policies fail")
	}
}

func TestVcd2JSONE2E_Directory(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd2json")

	dump, err := os.ReadFile(filepath.Join(repoRoot, "testdata", "vcd", "counter.vcd"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	src := t.TempDir()
	for _, rel := range []string{"a.vcd", filepath.Join("sim", "b.vcd")} {
		path := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, dump, 0o644); err != nil {
			t.Fatalf("write dump: %v", err)
		}
	}
	out := t.TempDir()

	_, stderr, err := runBinary(t, bin, isolatedEnv(t), nil, "-o", out, src)
	if err != nil {
		t.Fatalf("vcd2json failed: %v\nstderr:\n%s", err, stderr)
	}

	want := `{"top":{"clk":[0,1,0,1],"count":[0,0,1,3],"sub":{"en":[1,1,1,1]}}}` + "\n"
	for _, rel := range []string{"a.json", filepath.Join("sim", "b.json")} {
		got, err := os.ReadFile(filepath.Join(out, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if diff := cmp.Diff(want, string(got)); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", rel, diff)
		}
	}
}

func TestVcdFactsE2E(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot, "vcd-facts")

	stdout, stderr, err := runBinary(t, bin, isolatedEnv(t), nil,
		"--scope", "top.sub", filepath.Join(repoRoot, "testdata", "vcd", "counter.vcd"))
	if err != nil {
		t.Fatalf("vcd-facts failed: %v\nstderr:\n%s", err, stderr)
	}

	var tables struct {
		Scopes []struct {
			Path string `json:"path"`
		} `json:"scopes"`
		Signals []struct {
			Path string `json:"path"`
			ID   string `json:"id"`
		} `json:"signals"`
	}
	if err := json.Unmarshal([]byte(stdout), &tables); err != nil {
		t.Fatalf("parse facts: %v\n%s", err, stdout)
	}
	if len(tables.Scopes) != 1 || tables.Scopes[0].Path != "top.sub" {
		t.Fatalf("unexpected scopes: %+v", tables.Scopes)
	}
	if len(tables.Signals) != 1 || tables.Signals[0].Path != "top.sub.en" || tables.Signals[0].ID != "#" {
		t.Fatalf("unexpected signals: %+v", tables.Signals)
	}
}

func runBinary(t *testing.T, bin string, env []string, stdin []byte, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = env
	cmd.Dir = t.TempDir()
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func isolatedEnv(t *testing.T) []string {
	t.Helper()
	home := t.TempDir()
	return append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"VCD2JSON_TIMING_JSONL=",
	)
}

func buildBinary(t *testing.T, repoRoot, name string) string {
	t.Helper()
	binDir := t.TempDir()
	binPath := filepath.Join(binDir, name)
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/"+name)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s failed: %v\n%s", name, err, string(out))
	}
	return binPath
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "testdata", "vcd", "counter.vcd")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
