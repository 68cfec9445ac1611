// Package jobrun drives the asynchronous job lifecycle against the engine:
// connectivity pre-check, workflow submission, bounded status polling, and a
// concurrent fetch-and-transcode of every produced artifact.
//
// Failures split into two tiers. Stage failures (connectivity, submission,
// execution, timeout) abort the run and surface as errors wrapping the
// sentinel markers in errors.go. Per-artifact failures never abort anything;
// they are recorded on that artifact's OutputRecord and siblings proceed.
package jobrun
