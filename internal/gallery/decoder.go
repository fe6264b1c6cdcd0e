package gallery

import (
	"image"

	// Registered for their side effects on image.Decode (§4.7's decoder
	// needs to recognize whichever format the store happens to hold).
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// runDecoder is the single decoder goroutine (§4.7). It pops indices
// off the LIFO decode stack and turns the stored page bytes into an
// image.Image for listeners.
func (c *Coordinator) runDecoder() {
	defer c.wg.Done()
	for {
		index, ok := c.popDecode()
		if !ok {
			return
		}
		c.decodeOne(index)
	}
}

// popDecode blocks until the decode stack has an entry or the
// coordinator is shutting down.
func (c *Coordinator) popDecode() (uint32, bool) {
	c.decodeMu.Lock()
	defer c.decodeMu.Unlock()
	for len(c.decodeStack) == 0 {
		if c.ctx.Err() != nil {
			return 0, false
		}
		c.decodeCond.Wait()
	}
	if c.ctx.Err() != nil {
		return 0, false
	}
	last := len(c.decodeStack) - 1
	index := c.decodeStack[last]
	c.decodeStack = c.decodeStack[:last]
	return index, true
}

func (c *Coordinator) decodeOne(index uint32) {
	pt := c.pages.Load()
	if pt == nil || int(index) >= pt.size() {
		c.listeners.getImageFailure(index, ErrKindOutOfRange.String())
		return
	}

	pipe, err := c.deps.Store.OpenInputPipe(index)
	if err != nil {
		c.listeners.getImageFailure(index, ErrKindNotFound.String())
		return
	}
	if err := pipe.Obtain(); err != nil {
		c.listeners.getImageFailure(index, ErrKindNotFound.String())
		return
	}
	defer pipe.Release()
	defer pipe.Close()

	r, err := pipe.Open()
	if err != nil {
		c.listeners.getImageFailure(index, ErrKindNotFound.String())
		return
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		if isStreamReadError(err) {
			c.listeners.getImageFailure(index, ErrKindReadingFailed.String())
			return
		}
		c.listeners.getImageFailure(index, ErrKindDecodeFailed.String())
		return
	}
	c.listeners.getImageSuccess(index, img)
}

// StreamReadFailure is implemented by errors that originate from the
// input stream itself rather than from image format decoding, so
// decodeOne can classify them as reading-failed instead of
// decoding-failed (§4.7). A Store's InputPipe should wrap a Read
// error in a type implementing this interface to get that
// distinction; a plain io error from a well-behaved pipe still ends
// up classified as decoding-failed.
type StreamReadFailure interface {
	error
	StreamReadFailure()
}

func isStreamReadError(err error) bool {
	_, ok := err.(StreamReadFailure)
	return ok
}
