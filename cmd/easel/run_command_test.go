package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"easel/internal/testsupport"
)

// fakeEngineServer serves a one-image workflow that completes on the first
// poll.
func fakeEngineServer(t *testing.T) *httptest.Server {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 200, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/system_stats":
			_, _ = w.Write([]byte(`{"system":{"os":"posix"}}`))
		case r.URL.Path == "/prompt":
			_, _ = w.Write([]byte(`{"prompt_id":"abc"}`))
		case strings.HasPrefix(r.URL.Path, "/history/"):
			_, _ = w.Write([]byte(`{"abc":{"status":{"completed":true,"status_str":"success"},"outputs":{"9":{"images":[{"filename":"out.png","subfolder":"","type":"output"}]}}}}`))
		case r.URL.Path == "/view":
			_, _ = w.Write(pngBuf.Bytes())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// writeTestConfig materializes a config file pointing at the fake engine
// with timing collapsed for tests.
func writeTestConfig(t *testing.T, engineURL string) (configPath, outputDir, runLogDir string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithEngineURL(engineURL))
	cfg.Workflow.TimeoutMinutes = 1
	cfg.Logging.Level = "error"
	return testsupport.WriteConfigFile(t, cfg), cfg.Output.Dir, cfg.RunLog.Dir
}

func writeWorkflowFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := os.WriteFile(path, []byte(`{"1":{"class_type":"KSampler"}}`), 0o644); err != nil {
		t.Fatalf("write workflow: %v", err)
	}
	return path
}

func TestRunCommandJSONOutput(t *testing.T) {
	server := fakeEngineServer(t)
	configPath, _, _ := writeTestConfig(t, server.URL)
	workflowPath := writeWorkflowFile(t)

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"run", "--config", configPath, "--json", "--no-save", workflowPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run command returned error: %v (output: %s)", err, stdout.String())
	}

	var records []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, stdout.String())
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0]["filename"] != "out.png" || records[0]["mime_type"] != "image/png" {
		t.Fatalf("unexpected record: %#v", records[0])
	}
}

func TestRunCommandSavesArtifacts(t *testing.T) {
	server := fakeEngineServer(t)
	configPath, outputDir, _ := writeTestConfig(t, server.URL)
	workflowPath := writeWorkflowFile(t)

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"run", "--config", configPath, workflowPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run command returned error: %v (output: %s)", err, stdout.String())
	}

	saved := filepath.Join(outputDir, "out.png")
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("artifact not saved: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("saved artifact is not valid png: %v", err)
	}
}

func TestRunCommandRecordsHistory(t *testing.T) {
	server := fakeEngineServer(t)
	configPath, _, _ := writeTestConfig(t, server.URL)
	workflowPath := writeWorkflowFile(t)

	runCmd := newRootCommand()
	var runOut bytes.Buffer
	runCmd.SetOut(&runOut)
	runCmd.SetErr(&runOut)
	runCmd.SetArgs([]string{"run", "--config", configPath, "--no-save", workflowPath})
	if err := runCmd.Execute(); err != nil {
		t.Fatalf("run command returned error: %v", err)
	}

	historyCmd := newRootCommand()
	var historyOut bytes.Buffer
	historyCmd.SetOut(&historyOut)
	historyCmd.SetErr(&historyOut)
	historyCmd.SetArgs([]string{"history", "--config", configPath, "--json"})
	if err := historyCmd.Execute(); err != nil {
		t.Fatalf("history command returned error: %v", err)
	}

	var runs []map[string]any
	if err := json.Unmarshal(historyOut.Bytes(), &runs); err != nil {
		t.Fatalf("history output is not JSON: %v (%q)", err, historyOut.String())
	}
	if len(runs) != 1 {
		t.Fatalf("got %d recorded runs, want 1", len(runs))
	}
	if runs[0]["Outcome"] != "completed" || runs[0]["PromptID"] != "abc" {
		t.Fatalf("unexpected run record: %#v", runs[0])
	}
}

func TestRunCommandMissingWorkflowFile(t *testing.T) {
	server := fakeEngineServer(t)
	configPath, _, _ := writeTestConfig(t, server.URL)

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"run", "--config", configPath, "/nonexistent/workflow.json"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing workflow file")
	}
}
