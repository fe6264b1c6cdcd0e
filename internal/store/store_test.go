package store

import (
	"io"
	"os"
	"testing"

	"go-gallery-fetch/internal/gallery"
	"go-gallery-fetch/internal/models"
)

func TestOutputThenInputRoundTrip(t *testing.T) {
	downloadDir := t.TempDir()
	s, err := NewFSStore(555, downloadDir, "")
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}
	s.SetMode(models.ModeDownload)

	if s.Contains(0) {
		t.Fatal("Contains on empty store: want false")
	}

	pipe, err := s.OpenOutputPipe(0, "jpg")
	if err != nil {
		t.Fatalf("OpenOutputPipe returned error: %v", err)
	}
	if err := pipe.Obtain(); err != nil {
		t.Fatalf("Obtain returned error: %v", err)
	}
	w, err := pipe.Open()
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := w.Write([]byte("hello gallery page")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("writer Close returned error: %v", err)
	}
	if err := pipe.Close(); err != nil {
		t.Fatalf("pipe Close returned error: %v", err)
	}
	pipe.Release()

	if !s.Contains(0) {
		t.Fatal("Contains after write: want true")
	}

	in, err := s.OpenInputPipe(0)
	if err != nil {
		t.Fatalf("OpenInputPipe returned error: %v", err)
	}
	if err := in.Obtain(); err != nil {
		t.Fatalf("Obtain returned error: %v", err)
	}
	r, err := in.Open()
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}
	if string(data) != "hello gallery page" {
		t.Fatalf("read data = %q", data)
	}
	r.Close()
	in.Close()
	in.Release()

	if err := s.Remove(0); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if s.Contains(0) {
		t.Fatal("Contains after Remove: want false")
	}
}

func TestOutputPipeObtainRejectsConcurrentOpen(t *testing.T) {
	s, err := NewFSStore(1, t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}
	s.SetMode(models.ModeDownload)

	a, _ := s.OpenOutputPipe(3, "png")
	if err := a.Obtain(); err != nil {
		t.Fatalf("first Obtain returned error: %v", err)
	}
	b, _ := s.OpenOutputPipe(3, "png")
	if err := b.Obtain(); err != gallery.ErrInvalidState {
		t.Fatalf("second Obtain = %v, want ErrInvalidState", err)
	}
	a.Release()
	if err := b.Obtain(); err != nil {
		t.Fatalf("Obtain after Release returned error: %v", err)
	}
}

func TestOpenInputPipeMissingIndex(t *testing.T) {
	s, err := NewFSStore(2, t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}
	s.SetMode(models.ModeDownload)
	if _, err := s.OpenInputPipe(99); err != gallery.ErrNotFound {
		t.Fatalf("OpenInputPipe = %v, want ErrNotFound", err)
	}
}

func TestStreamReadFailureClassification(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/x"
	if err := os.WriteFile(path, []byte("abc"), 0600); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	f.Close() // force subsequent Read to fail
	sr := &streamReader{r: f}
	buf := make([]byte, 4)
	_, err = sr.Read(buf)
	if err == nil {
		t.Fatal("Read on closed file: want error, got nil")
	}
	if _, ok := err.(gallery.StreamReadFailure); !ok {
		t.Fatalf("Read error %v does not implement gallery.StreamReadFailure", err)
	}
}
