package cmd

import (
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gosuri/uilive"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-gallery-fetch/index"
	"go-gallery-fetch/internal/helpers"
	"go-gallery-fetch/internal/models"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <gid> <token>",
	Short: "Download every page of a gallery into the content-addressed store",
	Args:  cobra.ExactArgs(2),
	RunE:  runFetch,
}

// fetchListener renders per-page progress with uilive, the way the
// teacher's downloadWorker writes one line per worker via
// writer.Newline().
type fetchListener struct {
	writer   *uilive.Writer
	lines    sync.Map // index -> *uilive.Writer (per-page line)
	pagesCh  chan uint32
	done     chan struct{}
	pages    uint32
	finished int64
	failed   int64
}

func newFetchListener(w *uilive.Writer) *fetchListener {
	return &fetchListener{writer: w, pagesCh: make(chan uint32, 1), done: make(chan struct{})}
}

func (l *fetchListener) line(index uint32) *uilive.Writer {
	v, _ := l.lines.LoadOrStore(index, l.writer.Newline())
	return v.(*uilive.Writer)
}

func (l *fetchListener) OnGetPages(pages uint32) {
	l.pages = pages
	l.pagesCh <- pages
}

func (l *fetchListener) OnGet509(index uint32) {
	fmt.Fprintf(l.line(index), "page %d: rate limited\n", index)
}

func (l *fetchListener) OnDownload(index uint32, contentLength, received int64, delta int) {
	if contentLength > 0 {
		fmt.Fprintf(l.line(index), "page %d: %s / %s\n", index, helpers.BytesToSize(uint64(received)), helpers.BytesToSize(uint64(contentLength)))
	} else {
		fmt.Fprintf(l.line(index), "page %d: %s\n", index, helpers.BytesToSize(uint64(received)))
	}
}

func (l *fetchListener) OnSuccess(index uint32) {
	fmt.Fprintf(l.line(index), "page %d: done\n", index)
	l.checkDone(atomic.AddInt64(&l.finished, 1))
}

func (l *fetchListener) OnFailure(index uint32, errMsg string) {
	fmt.Fprintf(l.line(index), "page %d: failed (%s)\n", index, errMsg)
	l.checkDone(atomic.AddInt64(&l.failed, 1))
}

func (l *fetchListener) checkDone(_ int64) {
	if l.pages > 0 && atomic.LoadInt64(&l.finished)+atomic.LoadInt64(&l.failed) >= int64(l.pages) {
		select {
		case <-l.done:
		default:
			close(l.done)
		}
	}
}

func (l *fetchListener) OnGetImageSuccess(uint32, image.Image) {}
func (l *fetchListener) OnGetImageFailure(uint32, string)      {}

func runFetch(cmd *cobra.Command, args []string) error {
	gid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid gid %q: %w", args[0], err)
	}
	identity := models.GalleryIdentity{GID: gid, Token: args[1]}

	a, err := newApp(globalConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	coord, err := a.registry.Acquire(identity, models.ModeDownload)
	if err != nil {
		return fmt.Errorf("acquiring gallery %d for download: %w", gid, err)
	}
	defer a.registry.Release(identity, models.ModeDownload)

	writer := uilive.New()
	writer.Start()
	defer writer.Stop()

	listener := newFetchListener(writer)
	coord.AddListener(listener)
	defer coord.RemoveListener(listener)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var pages uint32
	select {
	case pages = <-listener.pagesCh:
	case <-interrupt:
		log.Warn("interrupted before gallery metadata was fetched")
		return nil
	}
	if pages == 0 {
		log.Warn("gallery has no pages")
		return nil
	}
	log.Infof("gallery %d has %d pages, queuing downloads", gid, pages)

	for i := uint32(0); i < pages; i++ {
		coord.Request(i, true)
	}

	select {
	case <-listener.done:
		log.Infof("fetch complete: %d finished, %d failed", atomic.LoadInt64(&listener.finished), atomic.LoadInt64(&listener.failed))
		indexFetchedGallery(identity, pages)
	case <-interrupt:
		log.Warn("interrupted, releasing gallery")
	}
	return nil
}

// indexFetchedGallery records the gallery in the search index once a
// fetch completes, best-effort: a search-index failure never fails
// the fetch itself.
func indexFetchedGallery(identity models.GalleryIdentity, pages uint32) {
	idx, err := index.OpenOrCreateIndex(globalConfig.BleveIndexPath)
	if err != nil {
		log.WithError(err).Warn("opening search index for post-fetch indexing")
		return
	}
	defer idx.Close()

	item := index.Item{
		ID:        index.ItemID(identity.GID),
		GID:       identity.GID,
		Token:     identity.Token,
		Pages:     pages,
		FetchedAt: time.Now(),
	}
	if err := index.IndexItem(idx, item); err != nil {
		log.WithError(err).Warn("indexing fetched gallery")
	}
}
