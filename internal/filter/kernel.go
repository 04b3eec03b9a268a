package filter

import (
	"math"
	"sync"
)

// GaussianKernel generates a normalized 1D Gaussian kernel using radius as
// the standard deviation. The kernel spans 2*ceil(3*radius)+1 taps.
//
// For radius <= 0, returns the identity kernel [1.0].
func GaussianKernel(radius float64) []float32 {
	if radius <= 0 {
		return []float32{1.0}
	}

	sigma := radius
	halfSize := int(math.Ceil(sigma * 3))
	size := halfSize*2 + 1

	kernel := make([]float32, size)
	twoSigmaSq := 2 * sigma * sigma
	sum := 0.0
	for i := range size {
		x := float64(i - halfSize)
		val := math.Exp(-(x * x) / twoSigmaSq)
		kernel[i] = float32(val)
		sum += val
	}

	if sum > 0 {
		inv := float32(1.0 / sum)
		for i := range kernel {
			kernel[i] *= inv
		}
	}
	return kernel
}

// KernelSize returns the number of taps GaussianKernel produces for radius.
func KernelSize(radius float64) int {
	if radius <= 0 {
		return 1
	}
	return int(math.Ceil(radius*3))*2 + 1
}

// BoxRadii returns the radii of n box filters whose successive application
// approximates a Gaussian with standard deviation sigma.
func BoxRadii(sigma float64, n int) []int {
	radii := make([]int, n)
	if sigma <= 0 || n <= 0 {
		return radii
	}

	ideal := math.Sqrt(12*sigma*sigma/float64(n) + 1)
	lower := int(math.Floor(ideal))
	if lower%2 == 0 {
		lower--
	}
	upper := lower + 2

	fl := float64(lower)
	m := int(math.Round((12*sigma*sigma - float64(n)*fl*fl - 4*float64(n)*fl - 3*float64(n)) / (-4*fl - 4)))

	for i := range radii {
		width := upper
		if i < m {
			width = lower
		}
		radii[i] = (width - 1) / 2
	}
	return radii
}

// kernelCache caches Gaussian kernels keyed by radius*100.
type kernelCache struct {
	mu     sync.RWMutex
	cache  map[int][]float32
	maxLen int
}

var defaultKernelCache = newKernelCache(32)

func newKernelCache(maxLen int) *kernelCache {
	return &kernelCache{
		cache:  make(map[int][]float32),
		maxLen: maxLen,
	}
}

func (c *kernelCache) get(radius float64) []float32 {
	key := int(radius * 100)

	c.mu.RLock()
	if kernel, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return kernel
	}
	c.mu.RUnlock()

	kernel := GaussianKernel(radius)

	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		// Drop half; radii come from a slider, so the working set is tiny.
		count := 0
		for k := range c.cache {
			delete(c.cache, k)
			count++
			if count >= c.maxLen/2 {
				break
			}
		}
	}
	c.cache[key] = kernel
	c.mu.Unlock()

	return kernel
}

// CachedGaussianKernel returns a shared Gaussian kernel for radius.
// The returned slice must not be modified.
func CachedGaussianKernel(radius float64) []float32 {
	return defaultKernelCache.get(radius)
}
