package gallery

import (
	"io"
	"net/http"

	"go-gallery-fetch/internal/models"
)

// OutputPipe is the write side of a store entry. Obtain fails with
// ErrInvalidState while another pipe for the same index is obtained (§6).
type OutputPipe interface {
	Obtain() error
	Open() (io.WriteCloser, error)
	Release()
	Close() error
}

// InputPipe is the read side of a store entry.
type InputPipe interface {
	Obtain() error
	Open() (io.ReadCloser, error)
	Release()
	Close() error
}

// Store is the external page sink/source contract (§6): "a
// filesystem-like sink/source keyed by page index". The concrete
// implementation lives in internal/store, which imports this package
// for the pipe interfaces and sentinel errors.
type Store interface {
	SetMode(mode models.Mode)
	Contains(index uint32) bool
	OpenOutputPipe(index uint32, extensionHint string) (OutputPipe, error)
	OpenInputPipe(index uint32) (InputPipe, error)
	Remove(index uint32) error
	DownloadDir() (dir string, ok bool)
}

// HTTPDoer is the out-of-scope HTTP transport contract: "a client that
// executes a request and returns a stream-bearing response". Satisfied
// directly by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DetailInfo is what the first preview-page fetch yields at queen
// bootstrap (§4.2 step 3).
type DetailInfo struct {
	Pages          uint32
	PreviewPages   uint32
	PreviewPerPage uint32
	Seed           map[uint32]string // pToken seed from the first preview set
}

// DetailParser extracts gallery-level pagination plus the first
// preview set's pTokens from the detail HTML page.
type DetailParser interface {
	ParseDetail(html string) (DetailInfo, error)
}

// PreviewParser extracts (pageIndex -> pToken) pairs from one preview
// index page (§4.3).
type PreviewParser interface {
	ParsePreview(html string) (map[uint32]string, error)
}

// PageParser extracts the resolved image URL and optional bypass key
// from a page's HTML (§4.5).
type PageParser interface {
	ParsePage(html string) (imageURL string, skipHathKey string, err error)
}
