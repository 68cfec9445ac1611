package jobrun_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"testing"
	"time"

	"easel/internal/jobrun"
	"easel/internal/transcode"
)

func TestRunEndToEndPNG(t *testing.T) {
	f := newFakeEngine(t)
	f.history = []string{
		pendingHistory,
		pendingHistory,
		completedHistory(`{"9":{"images":[{"filename":"out.png","subfolder":"","type":"output"}]}}`),
	}
	f.views["out.png"] = pngBytes(t, 16, 12)

	runner := newTestRunner(t, f)
	result, err := runner.Run(context.Background(), []byte(`{"1":{"class_type":"KSampler"}}`), transcode.PNG(), time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.PromptID != "abc" {
		t.Fatalf("prompt id = %q, want abc", result.PromptID)
	}
	records := result.Records
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Filename != "out.png" || rec.MimeType != "image/png" || !rec.OK() {
		t.Fatalf("unexpected record: %#v", rec)
	}
	payload, err := base64.StdEncoding.DecodeString(rec.Data)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("payload is not png: %v", err)
	}
	if decoded.Bounds().Dx() != 16 || decoded.Bounds().Dy() != 12 {
		t.Fatalf("payload dimensions %v, want 16x12", decoded.Bounds())
	}
	if rec.Size == "" || rec.Extension != "png" {
		t.Fatalf("record missing size or extension: %#v", rec)
	}
}

func TestRunMalformedWorkflowFailsBeforePolling(t *testing.T) {
	f := newFakeEngine(t)
	runner := newTestRunner(t, f)

	_, err := runner.Run(context.Background(), []byte(`not json`), transcode.PNG(), time.Second)
	if !errors.Is(err, jobrun.ErrSubmission) {
		t.Fatalf("error = %v, want ErrSubmission", err)
	}
	if f.historyCallCount() != 0 {
		t.Fatalf("poller issued %d requests before submission succeeded", f.historyCallCount())
	}
	if f.promptCallCount() != 0 {
		t.Fatalf("malformed workflow reached the engine (%d submissions)", f.promptCallCount())
	}
}

func TestRunMissingPromptIDIsSubmissionError(t *testing.T) {
	f := newFakeEngine(t)
	f.promptBody = `{"number":7}`
	runner := newTestRunner(t, f)

	_, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.PNG(), time.Second)
	if !errors.Is(err, jobrun.ErrSubmission) {
		t.Fatalf("error = %v, want ErrSubmission", err)
	}
}

func TestRunConnectivityFailureIsFatal(t *testing.T) {
	f := newFakeEngine(t)
	f.statsStatus = 503
	runner := newTestRunner(t, f)

	_, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.PNG(), time.Second)
	if !errors.Is(err, jobrun.ErrConnectivity) {
		t.Fatalf("error = %v, want ErrConnectivity", err)
	}
	if f.promptCallCount() != 0 {
		t.Fatal("workflow was submitted despite failed connectivity check")
	}
}

func TestRunEngineErrorStatusIsExecutionError(t *testing.T) {
	f := newFakeEngine(t)
	f.history = []string{`{"abc":{"status":{"completed":true,"status_str":"error"},"outputs":{"9":{}}}}`}
	runner := newTestRunner(t, f)

	_, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.PNG(), time.Second)
	if !errors.Is(err, jobrun.ErrExecution) {
		t.Fatalf("error = %v, want ErrExecution", err)
	}
}

func TestRunEmptyOutputsIsExecutionError(t *testing.T) {
	f := newFakeEngine(t)
	f.history = []string{completedHistory(`{}`)}
	runner := newTestRunner(t, f)

	_, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.PNG(), time.Second)
	if !errors.Is(err, jobrun.ErrExecution) {
		t.Fatalf("error = %v, want ErrExecution", err)
	}
}

func TestRunPartialArtifactFailuresPreserveOrder(t *testing.T) {
	f := newFakeEngine(t)
	f.history = []string{completedHistory(`{
		"3":{"images":[{"filename":"a.png","subfolder":"","type":"output"},
		               {"filename":"missing.png","subfolder":"","type":"output"}]},
		"7":{"images":[{"filename":"b.png","subfolder":"","type":"temp"}]}
	}`)}
	f.views["a.png"] = pngBytes(t, 4, 4)
	f.views["b.png"] = pngBytes(t, 4, 4)

	runner := newTestRunner(t, f)
	result, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.PNG(), time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records := result.Records
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (one per ref)", len(records))
	}

	wantFilenames := []string{"a.png", "missing.png", "b.png"}
	for i, want := range wantFilenames {
		if records[i].Filename != want {
			t.Fatalf("record %d filename = %q, want %q", i, records[i].Filename, want)
		}
	}
	if !records[0].OK() || !records[2].OK() {
		t.Fatalf("successful artifacts carry errors: %#v", records)
	}
	if records[1].OK() {
		t.Fatal("failed download produced a success record")
	}
	if records[1].Data != "" {
		t.Fatal("failed record carries payload data")
	}
}

func TestRunDropsNonDownloadableRefs(t *testing.T) {
	f := newFakeEngine(t)
	f.history = []string{completedHistory(`{
		"2":{"images":[{"filename":"keep.png","subfolder":"","type":"output"},
		               {"filename":"skip.png","subfolder":"","type":"input"}]}
	}`)}
	f.views["keep.png"] = pngBytes(t, 4, 4)

	runner := newTestRunner(t, f)
	result, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.PNG(), time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Filename != "keep.png" {
		t.Fatalf("unexpected records: %#v", result.Records)
	}
}

func TestRunWavArtifactUnderJPEGFormatIsUnsupported(t *testing.T) {
	f := newFakeEngine(t)
	f.history = []string{completedHistory(`{"5":{"audios":[{"filename":"voice.wav","subfolder":"","type":"output"}]}}`)}
	f.views["voice.wav"] = []byte("RIFF....WAVEfmt ")

	format, err := transcode.JPEG(80)
	if err != nil {
		t.Fatalf("JPEG returned error: %v", err)
	}

	runner := newTestRunner(t, f)
	result, err := runner.Run(context.Background(), []byte(`{"1":{}}`), format, time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records := result.Records
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Error != "only jpeg, png and wav are supported" {
		t.Fatalf("error = %q, want unsupported message", records[0].Error)
	}
}

func TestRunWavPassthrough(t *testing.T) {
	source := []byte("RIFF....WAVEfmt fake-samples")
	f := newFakeEngine(t)
	f.history = []string{completedHistory(`{"5":{"audios":[{"filename":"voice.wav","subfolder":"","type":"output"}]}}`)}
	f.views["voice.wav"] = source

	runner := newTestRunner(t, f)
	result, err := runner.Run(context.Background(), []byte(`{"1":{}}`), transcode.WAV(), time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records := result.Records
	payload, err := base64.StdEncoding.DecodeString(records[0].Data)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if !bytes.Equal(payload, source) {
		t.Fatal("wav payload altered in transit")
	}
	if records[0].MimeType != "audio/wav" {
		t.Fatalf("mime type = %q, want audio/wav", records[0].MimeType)
	}
}
