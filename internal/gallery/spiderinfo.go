package gallery

import "go-gallery-fetch/internal/models"

// pToken sentinel values. A real token is any other non-empty string.
const (
	pTokenWait   = "\x00wait"
	pTokenFailed = "\x00failed"
)

// SpiderInfo is the persistent per-gallery metadata described in §3 of
// the distilled spec. It is loaded from disk at queen bootstrap,
// refreshed from the network on first run, and written through to both
// persistence tiers after that fetch and after each preview fetch that
// adds pTokens; FAILED markers set outside a preview fetch are kept in
// memory only.
type SpiderInfo struct {
	GID   uint64
	Token string

	Pages          uint32
	PreviewPages   uint32
	PreviewPerPage uint32

	// PTokenMap is dense, sized by Pages: index i holds "" (unknown),
	// pTokenWait (in-flight, never persisted), pTokenFailed (exhausted),
	// or a real token.
	PTokenMap []string
}

// matches reports whether this record was fetched for the given
// identity; a record loaded from disk is discarded otherwise (§4.2 step 2).
func (s SpiderInfo) matches(identity models.GalleryIdentity) bool {
	return s.GID == identity.GID && s.Token == identity.Token
}

// valid checks the invariants from §3: previewPerPage*previewPages >=
// pages, and every key in range.
func (s SpiderInfo) valid() bool {
	if s.PreviewPerPage == 0 && s.Pages > 0 {
		return false
	}
	if uint64(s.PreviewPerPage)*uint64(s.PreviewPages) < uint64(s.Pages) {
		return false
	}
	return uint32(len(s.PTokenMap)) == s.Pages
}

// persistable returns a copy with in-flight WAIT markers cleared to ""
// so they are never written to disk (§3 invariant).
func (s SpiderInfo) persistable() SpiderInfo {
	out := s
	out.PTokenMap = make([]string, len(s.PTokenMap))
	for i, v := range s.PTokenMap {
		if v == pTokenWait {
			out.PTokenMap[i] = ""
		} else {
			out.PTokenMap[i] = v
		}
	}
	return out
}

// SpiderInfoStore is the persistence contract for SpiderInfo: a
// write-through store with a download-directory tier (preferred on
// read) and a cache-directory tier (fallback), per §6's external
// interface description. Concrete implementations live in
// internal/database.
type SpiderInfoStore interface {
	// Load returns the record for identity.GID, preferring the
	// download-dir tier, falling back to the cache-dir tier. ok is
	// false when neither tier has a matching record.
	Load(downloadDir, cacheDir string, identity models.GalleryIdentity) (info SpiderInfo, ok bool, err error)

	// Save writes info through to both tiers, best-effort: an error
	// from one tier does not prevent writing the other.
	Save(downloadDir, cacheDir string, info SpiderInfo) error
}
