package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-gallery-fetch/internal/gallery"
	"go-gallery-fetch/internal/models"
)

// OpenOutputPipe returns the write side of a content-addressed page
// entry. The bytes land in a temp file first; Close hashes it and
// moves it into its final digest-named path, so a failed or
// interrupted write never leaves a manifest entry behind.
func (s *FSStore) OpenOutputPipe(index uint32, extensionHint string) (gallery.OutputPipe, error) {
	mode := s.currentMode()
	dir := s.galleryDir(mode)
	if dir == "" {
		return nil, fmt.Errorf("store: no directory configured for mode %s", mode)
	}
	return &outputPipe{store: s, mode: mode, index: index, ext: extensionHint, dir: dir}, nil
}

type outputPipe struct {
	store *FSStore
	mode  models.Mode
	index uint32
	ext   string
	dir   string
	f     *os.File
	path  string
}

func (p *outputPipe) Obtain() error {
	s := p.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeLocks[p.index] {
		return gallery.ErrInvalidState
	}
	s.writeLocks[p.index] = true
	return nil
}

func (p *outputPipe) Release() {
	s := p.store
	s.mu.Lock()
	delete(s.writeLocks, p.index)
	s.mu.Unlock()
}

func (p *outputPipe) Open() (io.WriteCloser, error) {
	if err := os.MkdirAll(p.dir, 0700); err != nil {
		return nil, fmt.Errorf("creating gallery dir: %w", err)
	}
	f, err := os.CreateTemp(p.dir, "page-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	p.f = f
	p.path = f.Name()
	return f, nil
}

func (p *outputPipe) Close() error {
	if p.f == nil {
		return nil
	}
	digest, err := digestFile(p.path)
	if err != nil {
		os.Remove(p.path)
		return fmt.Errorf("digesting downloaded page: %w", err)
	}

	entry := manifestEntry{Digest: digest, Ext: p.ext}
	finalPath := p.store.contentPath(p.mode, entry)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0700); err != nil {
		os.Remove(p.path)
		return fmt.Errorf("creating fan-out dir: %w", err)
	}
	if err := os.Rename(p.path, finalPath); err != nil {
		os.Remove(p.path)
		return fmt.Errorf("finalizing downloaded page: %w", err)
	}

	if err := p.store.finalize(p.mode, p.index, entry); err != nil {
		return fmt.Errorf("updating manifest: %w", err)
	}
	return nil
}

// OpenInputPipe returns the read side of an already-downloaded page.
func (s *FSStore) OpenInputPipe(index uint32) (gallery.InputPipe, error) {
	mode := s.currentMode()
	s.mu.Lock()
	entry, ok := s.manifests[mode][index]
	s.mu.Unlock()
	if !ok {
		return nil, gallery.ErrNotFound
	}
	return &inputPipe{store: s, index: index, path: s.contentPath(mode, entry)}, nil
}

type inputPipe struct {
	store *FSStore
	index uint32
	path  string
	f     *os.File
}

func (p *inputPipe) Obtain() error {
	s := p.store
	s.mu.Lock()
	s.readRefs[p.index]++
	s.mu.Unlock()
	return nil
}

func (p *inputPipe) Release() {
	s := p.store
	s.mu.Lock()
	if s.readRefs[p.index] > 0 {
		s.readRefs[p.index]--
	}
	s.mu.Unlock()
}

func (p *inputPipe) Open() (io.ReadCloser, error) {
	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gallery.ErrNotFound
		}
		return nil, fmt.Errorf("opening page: %w", err)
	}
	p.f = f
	return &streamReader{r: f}, nil
}

func (p *inputPipe) Close() error {
	if p.f == nil {
		return nil
	}
	return p.f.Close()
}

// streamReader wraps a page's content file so that a mid-stream read
// failure is classified as gallery.StreamReadFailure rather than an
// image-format decode error (§7).
type streamReader struct {
	r *os.File
}

func (w *streamReader) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if err != nil && err != io.EOF {
		return n, streamReadError{err: err}
	}
	return n, err
}

func (w *streamReader) Close() error { return w.r.Close() }

type streamReadError struct{ err error }

func (e streamReadError) Error() string      { return e.err.Error() }
func (e streamReadError) Unwrap() error      { return e.err }
func (e streamReadError) StreamReadFailure() {}
