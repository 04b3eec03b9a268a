// Package parallel runs per-line image work (shading bands, blur lines)
// across a fixed set of goroutines.
//
// Bands cuts a line range into contiguous bands sized to the pool, and
// WorkerPool executes them. Callers block until their whole batch is done,
// helping with queued items meanwhile, so nested batches cannot starve the
// pool.
//
// WorkerPool is safe for concurrent use.
package parallel
