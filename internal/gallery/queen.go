package gallery

// runQueen is the bootstrap and pToken service loop described in §4.2.
// It runs on its own goroutine for the lifetime of the coordinator.
func (c *Coordinator) runQueen() {
	defer c.wg.Done()
	defer c.killQueen()

	info, ok, err := c.deps.InfoStore.Load(c.deps.DownloadDir, c.deps.CacheDir, c.identity)
	if err != nil || !ok || !info.matches(c.identity) || !info.valid() {
		fetched, ferr := c.bootstrapInfo()
		if ferr != nil {
			// Abort without publishing pages: Size() observes
			// SizeError via hasQueen() going false on return.
			return
		}
		info = fetched
		c.deps.InfoStore.Save(c.deps.DownloadDir, c.deps.CacheDir, info.persistable())
	}

	c.spiderMu.Lock()
	c.spiderInfo = info
	c.spiderMu.Unlock()

	pt := newPageTable(info.Pages)
	c.pages.Store(pt)
	c.listeners.getPages(info.Pages)

	if c.sched.hasPendingWork(info.Pages) {
		c.ensureWorkers()
	}

	c.wg.Add(1)
	go c.runDecoder()

	c.pTokenServiceLoop()

	c.workersMu.Lock()
	for i := range c.workers {
		c.workers[i] = nil
	}
	c.workersMu.Unlock()
}

// bootstrapInfo fetches and parses the first preview page to seed a
// fresh SpiderInfo record (§4.2 step 3).
func (c *Coordinator) bootstrapInfo() (SpiderInfo, *PageError) {
	html, ferr := fetchHTML(c.ctx, c.deps.HTTPDoer, detailURL(c.identity.GID, c.identity.Token, 0))
	if ferr != nil {
		return SpiderInfo{}, ferr
	}
	detail, err := c.deps.DetailParser.ParseDetail(html)
	if err != nil {
		return SpiderInfo{}, newPageError(ErrKindParse, err)
	}

	info := SpiderInfo{
		GID:            c.identity.GID,
		Token:          c.identity.Token,
		Pages:          detail.Pages,
		PreviewPages:   detail.PreviewPages,
		PreviewPerPage: detail.PreviewPerPage,
		PTokenMap:      make([]string, detail.Pages),
	}
	for index, tok := range detail.Seed {
		if index < info.Pages {
			info.PTokenMap[index] = tok
		}
	}
	return info, nil
}

// pTokenServiceLoop is §4.2 step 8. It dequeues requested indices and
// resolves their pToken by spawning (at most one per distinct preview
// page) a preview-fetch goroutine, so a slow network fetch never blocks
// the service loop from draining the rest of the queue.
func (c *Coordinator) pTokenServiceLoop() {
	c.spiderMu.Lock()
	defer c.spiderMu.Unlock()
	for {
		if c.ctx.Err() != nil {
			return
		}
		if len(c.pTokenQueue) == 0 {
			c.queenCond.Wait()
			continue
		}
		index := c.pTokenQueue[0]
		c.pTokenQueue = c.pTokenQueue[1:]

		if int(index) >= len(c.spiderInfo.PTokenMap) {
			continue
		}
		if tok := c.spiderInfo.PTokenMap[index]; tok != "" && tok != pTokenWait {
			c.workerCond.Broadcast()
			continue
		}
		if c.spiderInfo.PreviewPerPage == 0 {
			c.spiderInfo.PTokenMap[index] = pTokenFailed
			c.workerCond.Broadcast()
			continue
		}

		previewIndex := index / c.spiderInfo.PreviewPerPage
		if c.previewInFlight[previewIndex] {
			continue
		}
		c.previewInFlight[previewIndex] = true
		c.spiderInfo.PTokenMap[index] = pTokenWait

		c.wg.Add(1)
		go c.runPreviewFetch(previewIndex)
	}
}

// runPreviewFetch is the preview-fetch procedure (§4.3): fetch one
// preview index page, populate every (page, pToken) pair it reveals,
// and write the updated SpiderInfo through to both persistence tiers.
func (c *Coordinator) runPreviewFetch(previewIndex uint32) {
	defer c.wg.Done()

	html, ferr := fetchHTML(c.ctx, c.deps.HTTPDoer, detailURL(c.identity.GID, c.identity.Token, previewIndex))

	c.spiderMu.Lock()
	defer c.spiderMu.Unlock()
	defer delete(c.previewInFlight, previewIndex)
	defer c.workerCond.Broadcast()

	if ferr != nil {
		c.failPreviewWait(previewIndex)
		return
	}
	pairs, err := c.deps.PreviewParser.ParsePreview(html)
	if err != nil {
		c.failPreviewWait(previewIndex)
		return
	}

	changed := false
	for index, tok := range pairs {
		if int(index) >= len(c.spiderInfo.PTokenMap) {
			continue
		}
		c.spiderInfo.PTokenMap[index] = tok
		changed = true
	}
	// Anything still WAIT in this preview's range and not covered by
	// the parsed set did not appear on the page: treat as failed.
	lo := previewIndex * c.spiderInfo.PreviewPerPage
	hi := lo + c.spiderInfo.PreviewPerPage
	for i := lo; i < hi && int(i) < len(c.spiderInfo.PTokenMap); i++ {
		if c.spiderInfo.PTokenMap[i] == pTokenWait {
			c.spiderInfo.PTokenMap[i] = pTokenFailed
		}
	}
	if changed {
		c.deps.InfoStore.Save(c.deps.DownloadDir, c.deps.CacheDir, c.spiderInfo.persistable())
	}
}

// failPreviewWait marks every index still WAIT within previewIndex's
// range as FAILED. Caller holds spiderMu.
func (c *Coordinator) failPreviewWait(previewIndex uint32) {
	lo := previewIndex * c.spiderInfo.PreviewPerPage
	hi := lo + c.spiderInfo.PreviewPerPage
	for i := lo; i < hi && int(i) < len(c.spiderInfo.PTokenMap); i++ {
		if c.spiderInfo.PTokenMap[i] == pTokenWait {
			c.spiderInfo.PTokenMap[i] = pTokenFailed
		}
	}
}
