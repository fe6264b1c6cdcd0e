package gallery

import "testing"

func TestSchedulerDequeuePriority(t *testing.T) {
	s := newScheduler()
	s.setDownloadMode(true)

	s.pushInteractive(10, 100) // queues 10, preloads 11..15
	s.pushForce(99)

	index, forced, ok := s.next(100)
	if !ok || !forced || index != 99 {
		t.Fatalf("next() = (%d, forced=%v, ok=%v), want (99, true, true)", index, forced, ok)
	}

	index, forced, ok = s.next(100)
	if !ok || forced || index != 10 {
		t.Fatalf("next() = (%d, forced=%v, ok=%v), want (10, false, true)", index, forced, ok)
	}

	index, forced, ok = s.next(100)
	if !ok || forced || index != 11 {
		t.Fatalf("next() = (%d, forced=%v, ok=%v), want (11, false, true) from preload queue", index, forced, ok)
	}
}

func TestSchedulerFallsBackToCursor(t *testing.T) {
	s := newScheduler()
	s.setDownloadMode(true)

	index, forced, ok := s.next(3)
	if !ok || forced || index != 0 {
		t.Fatalf("next() = (%d, forced=%v, ok=%v), want (0, false, true)", index, forced, ok)
	}
	index, _, ok = s.next(3)
	if !ok || index != 1 {
		t.Fatalf("next() = (%d, ok=%v), want (1, true)", index, ok)
	}
	index, _, ok = s.next(3)
	if !ok || index != 2 {
		t.Fatalf("next() = (%d, ok=%v), want (2, true)", index, ok)
	}
	if _, _, ok = s.next(3); ok {
		t.Fatal("next() after cursor exhausted should report ok=false")
	}
}

func TestSchedulerCursorDisabledInReadMode(t *testing.T) {
	s := newScheduler()
	s.setDownloadMode(false)
	if _, _, ok := s.next(10); ok {
		t.Fatal("next() with no queued work and cursor disabled should report ok=false")
	}
}

func TestSchedulerPreloadQueueIsReplacedNotAppended(t *testing.T) {
	s := newScheduler()
	s.pushInteractive(0, 10) // preloads 1..5
	s.pushInteractive(20, 10) // pages=10 means preload range is empty; requestQueue2 cleared

	// Drain the two interactive requests first.
	index, _, ok := s.next(10)
	if !ok || index != 0 {
		t.Fatalf("next() = %d, want 0", index)
	}
	index, _, ok = s.next(10)
	if !ok || index != 20 {
		t.Fatalf("next() = %d, want 20", index)
	}
	// Preload queue should be empty since the second pushInteractive
	// cleared it and 20+1..20+5 is entirely >= pages=10.
	if _, _, ok = s.next(10); ok {
		t.Fatal("preload queue should have been replaced empty by the second pushInteractive")
	}
}

func TestSchedulerHasPendingWork(t *testing.T) {
	s := newScheduler()
	if s.hasPendingWork(10) {
		t.Fatal("fresh read-mode scheduler should report no pending work")
	}
	s.setDownloadMode(true)
	if !s.hasPendingWork(10) {
		t.Fatal("download-mode scheduler with pages>0 should report pending work")
	}
	s.setDownloadMode(false)
	s.pushForce(3)
	if !s.hasPendingWork(10) {
		t.Fatal("a forced request should count as pending work")
	}
}
