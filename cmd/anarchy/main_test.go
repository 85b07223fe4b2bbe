package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skyline-hq/anarchy/pkg/cli"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a config that keeps settings in a temp directory and
// returns its path and the settings file path.
func writeConfig(t *testing.T, backend string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.yaml")
	content := fmt.Sprintf(`settings:
  backend: %s
  file_path: %s
sessions:
  sweep_schedule: ""
telemetry:
  logging:
    level: warn
  metrics:
    enabled: true
`, backend, settingsPath)

	path := filepath.Join(dir, "anarchy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, settingsPath
}

func TestChecksSetAndList(t *testing.T) {
	cfg, settingsPath := writeConfig(t, "file")

	out, _, err := execute(t, "-c", cfg, "checks", "set", "InWater", "Always", "-o", "text")
	if err != nil {
		t.Fatalf("checks set error = %v", err)
	}
	if out != "InWater: Always\n" {
		t.Errorf("checks set output = %q", out)
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
	if !strings.Contains(string(data), "policy: Always") {
		t.Errorf("settings file:\n%s", data)
	}

	out, _, err = execute(t, "-c", cfg, "checks", "list", "-o", "csv")
	if err != nil {
		t.Fatalf("checks list error = %v", err)
	}
	if !strings.Contains(out, "5,InWater,Always,WithAnarchy") {
		t.Errorf("checks list output:\n%s", out)
	}

	if _, _, err := execute(t, "-c", cfg, "checks", "set", "0", "Never", "-o", "text"); err != nil {
		t.Fatalf("checks set by index error = %v", err)
	}
	out, _, _ = execute(t, "-c", cfg, "checks", "list", "-o", "csv")
	if !strings.Contains(out, "0,OverlapExisting,Never,WithAnarchy") {
		t.Errorf("index change not listed:\n%s", out)
	}

	out, _, err = execute(t, "-c", cfg, "checks", "reset", "-o", "csv")
	if err != nil {
		t.Fatalf("checks reset error = %v", err)
	}
	if !strings.Contains(out, "5,InWater,WithAnarchy,WithAnarchy") {
		t.Errorf("checks reset output:\n%s", out)
	}
}

func TestChecksSet_ExitCodes(t *testing.T) {
	cfg, _ := writeConfig(t, "memory")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "unknown category", args: []string{"Gravity", "Always"}, want: cli.ExitFailure},
		{name: "index out of range", args: []string{"99", "Always"}, want: cli.ExitFailure},
		{name: "bad policy", args: []string{"InWater", "sometimes"}, want: cli.ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-c", cfg, "checks", "set"}, tt.args...)
			args = append(args, "-o", "text")
			_, _, err := execute(t, args...)
			if got := cli.ExitCode(err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, tt.want)
			}
		})
	}
}

const overlapScenario = `
name: overlap
anarchy: true
world:
  objects:
    - {x: 0, z: 0, radius: 2}
frames:
  - place:
      - {x: 1, z: 0, radius: 2}
    commit: true
  - triggers:
      - {name: ToggleAnarchy}
    place:
      - {x: 30, z: 0, radius: 2}
    commit: true
`

func TestSimulate(t *testing.T) {
	cfg, _ := writeConfig(t, "memory")
	scenario := filepath.Join(t.TempDir(), "overlap.yaml")
	if err := os.WriteFile(scenario, []byte(overlapScenario), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, "-c", cfg, "simulate", "-s", scenario, "-o", "json")
		if err != nil {
			t.Fatalf("simulate error = %v", err)
		}
		var report struct {
			Scenario string            `json:"scenario"`
			Frames   []json.RawMessage `json:"frames"`
			Entities int               `json:"entities"`
		}
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}
		if report.Scenario != "overlap" || len(report.Frames) != 2 || report.Entities != 3 {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("text", func(t *testing.T) {
		out, _, err := execute(t, "-c", cfg, "simulate", "-s", scenario, "-o", "text")
		if err != nil {
			t.Fatalf("simulate error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
		}
		if !strings.Contains(lines[0], "anarchy=on") || !strings.Contains(lines[0], "preserved=1") {
			t.Errorf("frame 1 = %q", lines[0])
		}
		if !strings.Contains(lines[1], "anarchy=off") {
			t.Errorf("frame 2 = %q", lines[1])
		}
	})
}

func TestSimulate_ConfigErrors(t *testing.T) {
	cfg, _ := writeConfig(t, "memory")
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("settings:\n  backend: etcd\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing scenario", args: []string{"-c", cfg, "simulate", "-s", "", "-o", "text"}},
		{name: "bad output", args: []string{"-c", cfg, "simulate", "-s", "x.yaml", "-o", "xml"}},
		{name: "bad config", args: []string{"-c", bad, "config", "validate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if got := cli.ExitCode(err); got != cli.ExitConfig {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, cli.ExitConfig)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg, _ := writeConfig(t, "memory")
	out, _, err := execute(t, "-c", cfg, "config", "validate")
	if err != nil {
		t.Fatalf("config validate error = %v", err)
	}
	if !strings.HasPrefix(out, "configuration valid") {
		t.Errorf("output = %q", out)
	}
}
