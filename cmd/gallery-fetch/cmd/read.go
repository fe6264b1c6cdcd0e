package cmd

import (
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"go-gallery-fetch/internal/gallery"
	"go-gallery-fetch/internal/l10n"
	"go-gallery-fetch/internal/models"
)

func init() {
	rootCmd.AddCommand(readCmd)
}

var readCmd = &cobra.Command{
	Use:   "read <gid> <token> <page>",
	Short: "Resolve and decode a single gallery page",
	Args:  cobra.ExactArgs(3),
	RunE:  runRead,
}

// readListener drives a single page through its two terminal
// transitions: download success (OnSuccess) must trigger a second
// Request to push the decode, and the decode itself resolves
// decodeDone (§4.6/§4.7).
type readListener struct {
	index32    uint32
	coord      *gallery.Coordinator
	decodeDone chan struct{}
	img        image.Image
	errMsg     string
}

func (l *readListener) OnGetPages(uint32) {}
func (l *readListener) OnGet509(uint32)   {}
func (l *readListener) OnDownload(uint32, int64, int64, int) {}

func (l *readListener) OnSuccess(index uint32) {
	if index != l.index32 {
		return
	}
	l.coord.Request(index, false)
}

func (l *readListener) OnFailure(index uint32, errMsg string) {
	if index != l.index32 {
		return
	}
	l.errMsg = errMsg
	close(l.decodeDone)
}

func (l *readListener) OnGetImageSuccess(index uint32, img image.Image) {
	if index != l.index32 {
		return
	}
	l.img = img
	close(l.decodeDone)
}

func (l *readListener) OnGetImageFailure(index uint32, errMsg string) {
	if index != l.index32 {
		return
	}
	l.errMsg = errMsg
	close(l.decodeDone)
}

func runRead(cmd *cobra.Command, args []string) error {
	gid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid gid %q: %w", args[0], err)
	}
	page, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid page %q: %w", args[2], err)
	}
	identity := models.GalleryIdentity{GID: gid, Token: args[1]}
	index := uint32(page)

	a, err := newApp(globalConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	coord, err := a.registry.Acquire(identity, models.ModeRead)
	if err != nil {
		return fmt.Errorf("acquiring gallery %d for read: %w", gid, err)
	}
	defer a.registry.Release(identity, models.ModeRead)

	listener := &readListener{index32: index, coord: coord, decodeDone: make(chan struct{})}
	coord.AddListener(listener)
	defer coord.RemoveListener(listener)

	percent, errMsg, hasErr := coord.Request(index, false)
	if hasErr {
		return fmt.Errorf("page %d previously failed: %s", index, errMsg)
	}
	_ = percent

	select {
	case <-listener.decodeDone:
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timed out waiting for page %d", index)
	}

	if listener.errMsg != "" {
		return fmt.Errorf("page %d: %s", index, l10n.Lookup("en", listener.errMsg))
	}
	bounds := listener.img.Bounds()
	fmt.Printf("page %d decoded: %dx%d\n", index, bounds.Dx(), bounds.Dy())
	return nil
}
