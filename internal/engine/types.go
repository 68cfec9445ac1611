package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Workflow is a parsed workflow graph: a JSON object mapping node ids to node
// definitions. Node internals are opaque to easel and passed through verbatim.
type Workflow map[string]json.RawMessage

// ParseWorkflow validates raw workflow JSON. The engine requires a JSON
// object at the top level; anything else is rejected here, before submission.
func ParseWorkflow(data []byte) (Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("workflow must be a JSON object: %w", err)
	}
	if len(wf) == 0 {
		return nil, errors.New("workflow must not be empty")
	}
	return wf, nil
}

// JobStatus is the engine's reported status for a job. StatusStr carries the
// engine's own outcome string; the value "error" marks a failed execution.
type JobStatus struct {
	Completed bool   `json:"completed"`
	StatusStr string `json:"status_str"`
}

// ArtifactRef locates one produced output file on the engine.
type ArtifactRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Downloadable reports whether the engine will serve this ref from its view
// endpoint. Only "output" and "temp" artifacts are downloadable.
func (r ArtifactRef) Downloadable() bool {
	return r.Type == "output" || r.Type == "temp"
}

// NodeOutput lists the artifacts one graph node produced.
type NodeOutput struct {
	Images []ArtifactRef `json:"images"`
	Audios []ArtifactRef `json:"audios"`
}

// HistoryEntry is one job's record in the engine history. Status is a pointer
// so a record whose status has not been populated yet is distinguishable from
// a pending one.
type HistoryEntry struct {
	Status  *JobStatus            `json:"status"`
	Outputs map[string]NodeOutput `json:"outputs"`
}

// SystemStats is the engine's self-description from the connectivity probe.
type SystemStats struct {
	System  SystemInfo `json:"system"`
	Devices []Device   `json:"devices"`
}

// SystemInfo describes the engine host.
type SystemInfo struct {
	OS            string `json:"os"`
	PythonVersion string `json:"python_version"`
	Version       string `json:"comfyui_version"`
}

// Device describes one compute device the engine reports.
type Device struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	VRAMTotal int64  `json:"vram_total"`
}
