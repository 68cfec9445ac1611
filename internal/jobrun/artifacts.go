package jobrun

import (
	"context"
	"encoding/base64"
	"sort"
	"strconv"
	"sync"

	"easel/internal/engine"
	"easel/internal/transcode"
)

// OutputRecord is the normalized result for one artifact. Exactly one of
// Data or Error is populated; the locator fields are always present.
type OutputRecord struct {
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	Subfolder string `json:"subfolder"`
	Size      string `json:"size,omitempty"`
	Extension string `json:"extension,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Data      string `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OK reports whether the artifact was fetched and encoded successfully.
func (rec OutputRecord) OK() bool {
	return rec.Error == ""
}

// Payload decodes the record's transport-encoded data back into raw bytes.
func (rec OutputRecord) Payload() ([]byte, error) {
	return base64.StdEncoding.DecodeString(rec.Data)
}

// enumerateArtifacts flattens every node's image and audio refs into one
// sequence, dropping refs the engine will not serve. Node ids are ordered
// numerically when numeric so a single run's output is deterministic; the
// engine itself guarantees no stable order across runs.
func enumerateArtifacts(outputs map[string]engine.NodeOutput) []engine.ArtifactRef {
	nodeIDs := make([]string, 0, len(outputs))
	for id := range outputs {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool {
		a, aErr := strconv.Atoi(nodeIDs[i])
		b, bErr := strconv.Atoi(nodeIDs[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return nodeIDs[i] < nodeIDs[j]
		}
	})

	var refs []engine.ArtifactRef
	for _, id := range nodeIDs {
		node := outputs[id]
		for _, ref := range node.Images {
			if ref.Downloadable() {
				refs = append(refs, ref)
			}
		}
		for _, ref := range node.Audios {
			if ref.Downloadable() {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// fetchAll downloads and transcodes every ref concurrently. Results land in
// index-addressed slots so the returned slice preserves enumeration order no
// matter which fetches finish first, and every ref yields exactly one record.
func (r *Runner) fetchAll(ctx context.Context, refs []engine.ArtifactRef, format transcode.Format) []OutputRecord {
	records := make([]OutputRecord, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref engine.ArtifactRef) {
			defer wg.Done()
			records[i] = r.fetchOne(ctx, ref, format)
		}(i, ref)
	}
	wg.Wait()

	return records
}

// fetchOne produces the record for a single artifact. Failures here are
// local: they populate the record's Error field and never escape.
func (r *Runner) fetchOne(ctx context.Context, ref engine.ArtifactRef, format transcode.Format) OutputRecord {
	record := OutputRecord{
		Filename:  ref.Filename,
		Type:      ref.Type,
		Subfolder: ref.Subfolder,
	}

	// Download before classification so mismatched artifacts still get
	// fetched once; the bytes are useful when diagnosing engine output.
	data, err := r.client.View(ctx, ref)
	if err != nil {
		r.logger.Warn("artifact download failed", "filename", ref.Filename, "error", err)
		record.Error = err.Error()
		return record
	}

	class := transcode.Classify(ref.Filename)
	if class == transcode.ClassUnsupported || class != format.MediaClass() {
		record.Error = transcode.ErrUnsupportedFormat.Error()
		return record
	}

	payload, err := r.adapter.Transcode(data, format)
	if err != nil {
		r.logger.Warn("artifact transcode failed", "filename", ref.Filename, "error", err)
		record.Error = err.Error()
		return record
	}

	record.Data = transcode.EncodePayload(payload)
	record.Size = transcode.SizeLabel(len(payload))
	record.Extension = format.Extension()
	record.MimeType = format.MimeType()
	return record
}
