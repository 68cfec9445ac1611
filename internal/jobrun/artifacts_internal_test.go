package jobrun

import (
	"testing"

	"easel/internal/engine"
)

func TestEnumerateArtifactsOrdersAndFilters(t *testing.T) {
	outputs := map[string]engine.NodeOutput{
		"10": {Images: []engine.ArtifactRef{{Filename: "late.png", Type: "output"}}},
		"2": {
			Images: []engine.ArtifactRef{
				{Filename: "first.png", Type: "output"},
				{Filename: "preview.png", Type: "input"},
			},
			Audios: []engine.ArtifactRef{{Filename: "first.wav", Type: "temp"}},
		},
		"alpha": {Images: []engine.ArtifactRef{{Filename: "named.png", Type: "output"}}},
	}

	refs := enumerateArtifacts(outputs)

	want := []string{"first.png", "first.wav", "late.png", "named.png"}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d: %#v", len(refs), len(want), refs)
	}
	for i, filename := range want {
		if refs[i].Filename != filename {
			t.Fatalf("ref %d = %q, want %q", i, refs[i].Filename, filename)
		}
	}
}

func TestEnumerateArtifactsEmptyOutputs(t *testing.T) {
	if refs := enumerateArtifacts(map[string]engine.NodeOutput{}); len(refs) != 0 {
		t.Fatalf("expected no refs, got %#v", refs)
	}
}

func TestWrapMessageShape(t *testing.T) {
	err := wrap(ErrExecution, "engine reported error status for job abc", nil)
	want := "workflow execution failed: engine reported error status for job abc"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}
