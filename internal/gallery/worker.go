package gallery

import "go-gallery-fetch/internal/models"

// worker is one page-fetch worker goroutine (§4.4). Up to
// NumberSpiderWorker instances run per coordinator, lazily spawned by
// ensureWorkers and self-removing from the worker array on exit.
type worker struct {
	id int
	c  *Coordinator
}

// ensureWorkers lazily spawns any missing worker slots. Safe to call
// repeatedly; a slot already holding a live worker is left alone.
func (c *Coordinator) ensureWorkers() {
	c.workersMu.Lock()
	defer c.workersMu.Unlock()
	for i := range c.workers {
		if c.workers[i] != nil {
			continue
		}
		w := &worker{id: i, c: c}
		c.workers[i] = w
		c.wg.Add(1)
		go w.run()
	}
}

func (w *worker) run() {
	defer w.c.wg.Done()
	for w.runInternal() {
	}
	w.c.workersMu.Lock()
	if w.c.workers[w.id] == w {
		w.c.workers[w.id] = nil
	}
	w.c.workersMu.Unlock()
}

// runInternal executes one dequeue/acquire/download cycle (§4.4). It
// returns false when the worker should exit: the scheduler is
// exhausted, or shutdown was observed mid pToken-wait or mid download.
func (w *worker) runInternal() bool {
	c := w.c
	pt := c.pages.Load()
	if pt == nil {
		return false
	}

	index, forced, ok := c.sched.next(uint32(pt.size()))
	if !ok {
		return false
	}
	if int(index) >= pt.size() {
		return true
	}

	state := pt.get(index)
	if state == models.PageDownloading || (!forced && (state == models.PageFinished || state == models.PageFailed)) {
		return true
	}
	pt.transition(index, models.PageDownloading, "")

	if !forced && c.deps.Store.Contains(index) {
		pt.transition(index, models.PageFinished, "")
		c.listeners.success(index)
		return true
	}

	c.spiderMu.Lock()
	if forced && int(index) < len(c.spiderInfo.PTokenMap) && c.spiderInfo.PTokenMap[index] == pTokenFailed {
		c.spiderInfo.PTokenMap[index] = ""
	}
	c.spiderMu.Unlock()

	pToken, tokenFailed, interrupted := w.acquirePToken(index)
	if interrupted {
		return false
	}
	if tokenFailed {
		msg := ErrKindPTokenFailed.String()
		pt.transition(index, models.PageFailed, msg)
		c.listeners.failure(index, msg)
		return true
	}

	ok2, derr, interrupted2 := w.downloadWithRetry(index, pToken)
	if ok2 {
		pt.transition(index, models.PageFinished, "")
		c.listeners.success(index)
		return true
	}
	if interrupted2 {
		return false
	}

	c.deps.Store.Remove(index)
	msg := ErrKindUnknown.String()
	if derr != nil {
		msg = derr.Error()
	}
	pt.transition(index, models.PageFailed, msg)
	c.listeners.failure(index, msg)
	return true
}

// acquirePToken blocks until index's pToken is known, enqueueing a
// preview-fetch request for the queen when necessary (§4.4's pToken
// acquisition loop). failed reports a permanently FAILED token;
// interrupted reports coordinator shutdown observed while waiting.
func (w *worker) acquirePToken(index uint32) (token string, failed bool, interrupted bool) {
	c := w.c
	c.spiderMu.Lock()
	defer c.spiderMu.Unlock()
	for {
		if c.ctx.Err() != nil {
			return "", false, true
		}
		if int(index) >= len(c.spiderInfo.PTokenMap) {
			return "", false, true
		}
		tok := c.spiderInfo.PTokenMap[index]
		if tok == pTokenFailed {
			return "", true, false
		}
		if tok != "" && tok != pTokenWait {
			return tok, false, false
		}

		alreadyQueued := false
		for _, queued := range c.pTokenQueue {
			if queued == index {
				alreadyQueued = true
				break
			}
		}
		if !alreadyQueued {
			c.pTokenQueue = append(c.pTokenQueue, index)
		}
		c.queenCond.Signal()
		c.workerCond.Wait()
	}
}
