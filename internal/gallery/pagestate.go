package gallery

import (
	"sync"

	"go-gallery-fetch/internal/models"
)

// pageTable is the per-index state array plus the derived counters and
// the concurrent maps the distilled spec requires to stay consistent
// with it (§3, §5, §8). A single mutex covers the whole array, matching
// the spec's "Transitions are guarded by a single mutex covering the
// whole state array."
type pageTable struct {
	mu sync.Mutex

	states []models.PageState
	errs   map[uint32]string
	pct    map[uint32]*float64 // nil value means "content length unknown"

	downloaded int
	finished   int
}

func newPageTable(pages uint32) *pageTable {
	return &pageTable{
		states: make([]models.PageState, pages),
		errs:   make(map[uint32]string),
		pct:    make(map[uint32]*float64),
	}
}

func (t *pageTable) size() int { return len(t.states) }

func (t *pageTable) get(index uint32) models.PageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(index) >= len(t.states) {
		return models.PageNone
	}
	return t.states[index]
}

// transition moves index to the given state, maintaining the counters
// and the progress/error maps as specified in §4.5 and §8:
//   - entering DOWNLOADING clears any previous error.
//   - entering FINISHED or FAILED removes the progress percentage.
//   - entering FAILED records the error message (an ErrKind key or
//     PageError text, "unknown" when empty); l10n.Lookup localizes it.
func (t *pageTable) transition(index uint32, to models.PageState, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(index) >= len(t.states) {
		return
	}
	from := t.states[index]
	if from == models.PageNone && to != models.PageNone {
		t.downloaded++
	}
	if from != models.PageNone && to == models.PageNone {
		t.downloaded--
	}
	if from == models.PageFinished && to != models.PageFinished {
		t.finished--
	}
	if from != models.PageFinished && to == models.PageFinished {
		t.finished++
	}
	t.states[index] = to

	switch to {
	case models.PageDownloading:
		delete(t.errs, index)
	case models.PageFinished:
		delete(t.pct, index)
	case models.PageFailed:
		delete(t.pct, index)
		if errMsg == "" {
			errMsg = ErrKindUnknown.String()
		}
		t.errs[index] = errMsg
	case models.PageNone:
		delete(t.pct, index)
		delete(t.errs, index)
	}
}

func (t *pageTable) setPercent(index uint32, p *float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(index) >= len(t.states) || t.states[index] != models.PageDownloading {
		return
	}
	if p == nil {
		delete(t.pct, index)
		return
	}
	t.pct[index] = p
}

func (t *pageTable) percent(index uint32) *float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pct[index]
}

func (t *pageTable) errorMessage(index uint32) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg, ok := t.errs[index]; ok {
		return msg
	}
	return ErrKindUnknown.String()
}

func (t *pageTable) counts() (downloaded, finished int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.downloaded, t.finished
}
