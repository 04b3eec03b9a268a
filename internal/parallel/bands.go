package parallel

// minBandLines keeps bands large enough that scheduling stays cheap
// relative to the per-line work.
const minBandLines = 8

// Bands splits [0, n) into contiguous bands and calls fn(lo, hi) for each,
// in parallel on pool. A nil pool runs a single band on the caller.
func Bands(pool *WorkerPool, n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if pool == nil || pool.Workers() == 1 || n <= minBandLines {
		fn(0, n)
		return
	}

	count := pool.Workers() * 2
	size := (n + count - 1) / count
	if size < minBandLines {
		size = minBandLines
	}

	work := make([]func(), 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		work = append(work, func() { fn(lo, hi) })
	}
	pool.ExecuteAll(work)
}
