package gallery

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// downloadWithRetry runs up to RetryAttempts attempts of the image
// download procedure (§4.5). ok is true once the page body has been
// written to the store in full. interrupted is true when shutdown was
// observed mid attempt, in which case the caller must not record
// FAILED. Otherwise derr holds the classified failure of the last
// attempt.
func (w *worker) downloadWithRetry(index uint32, pToken string) (ok bool, derr *PageError, interrupted bool) {
	c := w.c
	var skipHathKey string

	for attempt := 0; attempt < RetryAttempts; attempt++ {
		if c.ctx.Err() != nil {
			return false, nil, true
		}
		nextSkip, perr, retry, intr := w.downloadAttempt(index, pToken, skipHathKey)
		if intr {
			return false, nil, true
		}
		if perr == nil {
			return true, nil, false
		}
		derr = perr
		if !retry {
			break
		}
		skipHathKey = nextSkip
	}
	return false, derr, false
}

// downloadAttempt runs one attempt of §4.5's steps 1-6. retry is true
// only for an I/O failure during body streaming (step 5); every other
// failure breaks the attempt loop without retrying.
func (w *worker) downloadAttempt(index uint32, pToken, prevSkipHathKey string) (skipHathKey string, perr *PageError, retry bool, interrupted bool) {
	c := w.c

	pageHTML, ferr := fetchHTML(c.ctx, c.deps.HTTPDoer, pageURL(c.identity.GID, index, pToken, prevSkipHathKey))
	if ferr != nil {
		if c.ctx.Err() != nil {
			return "", nil, false, true
		}
		return "", ferr, false, false
	}

	imageURL, skip, err := c.deps.PageParser.ParsePage(pageHTML)
	if err != nil {
		return "", newPageError(ErrKindParse, err), false, false
	}
	if isRateLimitedURL(imageURL) {
		c.listeners.get509(index)
		return "", newPageError(ErrKind509, nil), false, false
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", newPageError(ErrKindInvalidURL, err), false, false
	}
	resp, err := c.deps.HTTPDoer.Do(req)
	if err != nil {
		if c.ctx.Err() != nil {
			return "", nil, false, true
		}
		return "", newPageError(ErrKindSocket, err), false, false
	}
	defer resp.Body.Close()

	pipe, err := c.deps.Store.OpenOutputPipe(index, extHint(imageURL))
	if err != nil {
		return "", newPageError(ErrKindWriteFailed, err), false, false
	}
	if err := pipe.Obtain(); err != nil {
		return "", newPageError(ErrKindWriteFailed, err), false, false
	}
	defer pipe.Release()

	wtr, err := pipe.Open()
	if err != nil {
		return "", newPageError(ErrKindWriteFailed, err), false, false
	}

	pt := c.pages.Load()
	received := int64(0)
	buf := make([]byte, ChunkSize)
	for {
		if c.ctx.Err() != nil {
			wtr.Close()
			return "", nil, false, true
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := wtr.Write(buf[:n]); werr != nil {
				wtr.Close()
				return "", newPageError(ErrKindWriteFailed, werr), false, false
			}
			received += int64(n)
			var pct *float64
			if resp.ContentLength > 0 {
				p := float64(received) / float64(resp.ContentLength)
				pct = &p
			}
			if pt != nil {
				pt.setPercent(index, pct)
			}
			c.listeners.download(index, resp.ContentLength, received, n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			wtr.Close()
			return skip, newPageError(ErrKindSocket, rerr), true, false
		}
	}
	if cerr := wtr.Close(); cerr != nil {
		return "", newPageError(ErrKindWriteFailed, cerr), false, false
	}
	if cerr := pipe.Close(); cerr != nil {
		return "", newPageError(ErrKindWriteFailed, cerr), false, false
	}
	return skip, nil, false, false
}

// extHint derives the file extension used to name the stored page
// entry from the resolved image URL.
func extHint(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(path.Ext(u.Path), ".")
}
