// Package transcode normalizes raw artifact bytes into the caller-selected
// output format. Images are decoded and re-encoded (JPEG at a configurable
// quality, PNG lossless); WAV audio passes through untouched. Payloads are
// base64-encoded for transport and labeled with a human-readable size.
package transcode
