package jobrun_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"easel/internal/engine"
	"easel/internal/jobrun"
)

// fakeEngine is a scripted in-process engine for runner and poller tests.
type fakeEngine struct {
	t *testing.T

	mu           sync.Mutex
	statsStatus  int               // 0 means healthy
	promptBody   string            // raw /prompt response, default {"prompt_id":"abc"}
	history      []string          // /history responses served in order; last repeats
	views        map[string][]byte // filename -> bytes; absent filenames 404
	historyCalls int
	promptCalls  int

	server *httptest.Server
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	f := &fakeEngine{t: t, views: map[string][]byte{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/system_stats":
		if f.statsStatus != 0 {
			w.WriteHeader(f.statsStatus)
			return
		}
		_, _ = w.Write([]byte(`{"system":{"os":"posix"}}`))
	case r.URL.Path == "/prompt":
		f.promptCalls++
		body := f.promptBody
		if body == "" {
			body = `{"prompt_id":"abc"}`
		}
		_, _ = w.Write([]byte(body))
	case strings.HasPrefix(r.URL.Path, "/history/"):
		f.historyCalls++
		if len(f.history) == 0 {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		idx := f.historyCalls - 1
		if idx >= len(f.history) {
			idx = len(f.history) - 1
		}
		_, _ = w.Write([]byte(f.history[idx]))
	case r.URL.Path == "/view":
		filename := r.URL.Query().Get("filename")
		data, ok := f.views[filename]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeEngine) historyCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

func (f *fakeEngine) promptCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.promptCalls
}

// newTestRunner wires a runner against the fake engine with timing collapsed
// so tests finish in milliseconds.
func newTestRunner(t *testing.T, f *fakeEngine, opts ...jobrun.Option) *jobrun.Runner {
	t.Helper()
	client, err := engine.New(f.server.URL, "")
	if err != nil {
		t.Fatalf("engine.New returned error: %v", err)
	}
	base := []jobrun.Option{
		jobrun.WithPollInterval(2 * time.Millisecond),
		jobrun.WithStartupGrace(0),
	}
	runner, err := jobrun.NewRunner(client, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}
	return runner
}

// completedHistory builds a history payload for prompt id "abc" with the
// given outputs JSON fragment.
func completedHistory(outputs string) string {
	return `{"abc":{"status":{"completed":true,"status_str":"success"},"outputs":` + outputs + `}}`
}

const pendingHistory = `{"abc":{"status":{"completed":false,"status_str":"running"},"outputs":{}}}`

// pngBytes renders a small image for artifact fixtures.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 9), G: uint8(y * 9), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}
