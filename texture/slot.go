package texture

import "sync/atomic"

// Slot hands images from one producer goroutine to one consumer goroutine.
//
// The producer fills a buffer obtained from Back and publishes it; the
// consumer brackets each frame with Acquire and Release. An image is never
// written while a consumer holds it, and a published image is never
// modified, so the consumer sees one consistent image for the whole frame.
type Slot struct {
	front     atomic.Pointer[Image]
	spare     atomic.Pointer[Image]
	published atomic.Uint64
}

// Back returns an image of the requested size that the producer may
// overwrite: the previously retired image when no consumer still holds it,
// otherwise a new allocation.
func (s *Slot) Back(width, height int) *Image {
	if old := s.spare.Swap(nil); old != nil && old.refs.Load() == 0 {
		if w, h := old.Size(); w == width && h == height {
			return old
		}
	}
	return NewImage(width, height)
}

// Publish makes img the current image and retires the previous one.
// img must not be written after Publish.
func (s *Slot) Publish(img *Image) {
	img.gen = s.published.Add(1)
	if old := s.front.Swap(img); old != nil && old != img {
		s.spare.Store(old)
	}
}

// Acquire returns the current image, or nil before the first Publish.
// A non-nil result must be passed to Release when the frame is done.
func (s *Slot) Acquire() *Image {
	for {
		img := s.front.Load()
		if img == nil {
			return nil
		}
		img.refs.Add(1)
		if s.front.Load() == img {
			return img
		}
		// Retired between load and pin; the producer may be reusing it.
		img.refs.Add(-1)
	}
}

// Release unpins an image returned by Acquire.
func (s *Slot) Release(img *Image) {
	if img != nil {
		img.refs.Add(-1)
	}
}

// Generation returns the number of images published so far.
func (s *Slot) Generation() uint64 {
	return s.published.Load()
}
