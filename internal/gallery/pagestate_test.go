package gallery

import (
	"testing"

	"go-gallery-fetch/internal/models"
)

func TestPageTableTransitionCounters(t *testing.T) {
	pt := newPageTable(3)

	pt.transition(0, models.PageDownloading, "")
	if d, f := pt.counts(); d != 1 || f != 0 {
		t.Fatalf("after first transition: downloaded=%d finished=%d, want 1,0", d, f)
	}

	p := 0.5
	pt.setPercent(0, &p)
	if got := pt.percent(0); got == nil || *got != 0.5 {
		t.Fatalf("percent(0) = %v, want 0.5", got)
	}

	pt.transition(0, models.PageFinished, "")
	if d, f := pt.counts(); d != 1 || f != 1 {
		t.Fatalf("after finish: downloaded=%d finished=%d, want 1,1", d, f)
	}
	if got := pt.percent(0); got != nil {
		t.Fatalf("percent(0) after finish = %v, want nil", got)
	}

	pt.transition(1, models.PageDownloading, "")
	pt.transition(1, models.PageFailed, "boom")
	if d, f := pt.counts(); d != 2 || f != 1 {
		t.Fatalf("after fail: downloaded=%d finished=%d, want 2,1", d, f)
	}
	if got := pt.errorMessage(1); got != "boom" {
		t.Fatalf("errorMessage(1) = %q, want %q", got, "boom")
	}

	// Re-entering FAILED with no message keeps the unknown fallback.
	pt.transition(1, models.PageDownloading, "")
	pt.transition(1, models.PageFailed, "")
	if got := pt.errorMessage(1); got != ErrKindUnknown.String() {
		t.Fatalf("errorMessage(1) = %q, want %q", got, ErrKindUnknown.String())
	}
}

func TestPageTableOutOfRangeIsNoop(t *testing.T) {
	pt := newPageTable(1)
	pt.transition(5, models.PageFinished, "")
	if d, f := pt.counts(); d != 0 || f != 0 {
		t.Fatalf("out of range transition changed counters: downloaded=%d finished=%d", d, f)
	}
	if got := pt.get(5); got != models.PageNone {
		t.Fatalf("get(5) = %v, want PageNone", got)
	}
}

func TestPageTableSetPercentOnlyWhileDownloading(t *testing.T) {
	pt := newPageTable(1)
	p := 0.9
	pt.setPercent(0, &p)
	if got := pt.percent(0); got != nil {
		t.Fatalf("percent set before DOWNLOADING: %v, want nil", got)
	}

	pt.transition(0, models.PageDownloading, "")
	pt.setPercent(0, &p)
	if got := pt.percent(0); got == nil || *got != 0.9 {
		t.Fatalf("percent(0) = %v, want 0.9", got)
	}

	pt.transition(0, models.PageFinished, "")
	pt.setPercent(0, &p)
	if got := pt.percent(0); got != nil {
		t.Fatalf("percent set after FINISHED: %v, want nil", got)
	}
}
