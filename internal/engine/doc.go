// Package engine implements the HTTP client for the remote generative engine.
//
// The engine exposes a small, fixed API surface:
//   - GET  /system_stats          connectivity probe and engine info
//   - POST /prompt                submit a workflow graph, returns prompt_id
//   - GET  /history/{prompt_id}   job status and output descriptors
//   - GET  /view?filename=...     raw artifact byte download
//
// Engine responses are loosely shaped; this package validates them into typed
// structs at the boundary so the rest of easel never handles untyped data.
package engine
