// Package resource bounds the work done outside the foreground write path.
//
// A [Controller] tracks three budgets:
//
//   - Memory: cache reservations, fail-fast through TryAcquireMemory
//   - Background workers: a weighted semaphore shared by compaction and backup
//   - IO: a token bucket (golang.org/x/time/rate) throttling compaction
//     rewrites and backup transfers
//
// A nil *Controller is valid and imposes no limits.
//
//	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 8 << 20})
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
package resource
