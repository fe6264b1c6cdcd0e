package gallery

import "sync"

// scheduler holds the three request queues and the bulk download
// cursor described in §3, all guarded by one mutex as the spec
// requires. Dequeue priority (§4.4) is force > interactive > preload >
// cursor.
type scheduler struct {
	mu sync.Mutex

	forceRequestQueue []uint32
	requestQueue      []uint32
	requestQueue2     []uint32
	downloadCursor    int32 // -1 when not in download mode
}

func newScheduler() *scheduler {
	return &scheduler{downloadCursor: -1}
}

// setDownloadMode switches the cursor: 0 to enter DOWNLOAD mode, -1 to
// return to READ mode (§4.1).
func (s *scheduler) setDownloadMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.downloadCursor = 0
	} else {
		s.downloadCursor = -1
	}
}

func (s *scheduler) pushForce(index uint32) {
	s.mu.Lock()
	s.forceRequestQueue = append(s.forceRequestQueue, index)
	s.mu.Unlock()
}

// pushInteractive enqueues index for interactive viewing and replaces
// the preload queue with up to NumberPreload consecutive indices after
// it, clamped to pages (§3, resolving the Open Question in §9 as
// `i < index+1+NumberPreload`).
func (s *scheduler) pushInteractive(index uint32, pages uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestQueue = append(s.requestQueue, index)
	s.requestQueue2 = s.requestQueue2[:0]
	for i := index + 1; i < index+1+NumberPreload && i < pages; i++ {
		s.requestQueue2 = append(s.requestQueue2, i)
	}
}

// next pops the next index to work on following the priority order:
// force > interactive > preload > bulk cursor (§4.4). forced reports
// whether index came from forceRequestQueue, which bypasses the
// already-finished/failed guard in the worker's state check. ok is
// false when every queue is empty and the cursor is either disabled or
// has reached pages.
func (s *scheduler) next(pages uint32) (index uint32, forced bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.forceRequestQueue) > 0 {
		index, s.forceRequestQueue = s.forceRequestQueue[0], s.forceRequestQueue[1:]
		return index, true, true
	}
	if len(s.requestQueue) > 0 {
		index, s.requestQueue = s.requestQueue[0], s.requestQueue[1:]
		return index, false, true
	}
	if len(s.requestQueue2) > 0 {
		index, s.requestQueue2 = s.requestQueue2[0], s.requestQueue2[1:]
		return index, false, true
	}
	if s.downloadCursor >= 0 && uint32(s.downloadCursor) < pages {
		index = uint32(s.downloadCursor)
		s.downloadCursor++
		return index, false, true
	}
	return 0, false, false
}

// hasPendingWork reports whether any queue currently holds work, used
// at queen bootstrap to decide whether workers should be spawned
// immediately (§4.2 step 6).
func (s *scheduler) hasPendingWork(pages uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.forceRequestQueue) > 0 || len(s.requestQueue) > 0 || len(s.requestQueue2) > 0 {
		return true
	}
	return s.downloadCursor >= 0 && uint32(s.downloadCursor) < pages
}
