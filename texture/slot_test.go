package texture

import (
	"sync"
	"testing"
)

func TestSlotEmpty(t *testing.T) {
	var s Slot
	if img := s.Acquire(); img != nil {
		t.Fatalf("Acquire on empty slot = %v, want nil", img)
	}
	s.Release(nil)
	if s.Generation() != 0 {
		t.Errorf("Generation = %d, want 0", s.Generation())
	}
}

func TestSlotPublishAcquire(t *testing.T) {
	var s Slot
	a := s.Back(4, 4)
	s.Publish(a)

	got := s.Acquire()
	if got != a {
		t.Fatal("Acquire did not return the published image")
	}
	if got.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", got.Generation())
	}

	b := s.Back(4, 4)
	if b == a {
		t.Fatal("Back reused the front image")
	}
	s.Publish(b)

	// a is retired but still pinned, so it must not come back.
	if c := s.Back(4, 4); c == a {
		t.Fatal("Back reused an image still held by the consumer")
	}
	s.Release(got)
}

func TestSlotReusesReleasedImage(t *testing.T) {
	var s Slot
	a := s.Back(8, 8)
	s.Publish(a)
	s.Release(s.Acquire())

	s.Publish(s.Back(8, 8))
	if reused := s.Back(8, 8); reused != a {
		t.Error("expected the released image to be recycled")
	}

	s.Publish(s.Back(8, 8))
	if fresh := s.Back(16, 8); fresh == a {
		t.Error("recycled image of the wrong size")
	}
}

// The consumer must never observe a partially written image.
func TestSlotNoTearing(t *testing.T) {
	const (
		w, h   = 32, 32
		frames = 500
	)
	var s Slot
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range frames {
			img := s.Back(w, h)
			pix := img.RGBA().Pix
			for j := range pix {
				pix[j] = byte(i)
			}
			s.Publish(img)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range frames {
			img := s.Acquire()
			if img == nil {
				continue
			}
			pix := img.RGBA().Pix
			first := pix[0]
			for j, v := range pix {
				if v != first {
					t.Errorf("torn image: pix[%d] = %d, pix[0] = %d", j, v, first)
					break
				}
			}
			s.Release(img)
		}
	}()

	wg.Wait()
	if s.Generation() != frames {
		t.Errorf("Generation = %d, want %d", s.Generation(), frames)
	}
}
