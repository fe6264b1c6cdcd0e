package database

import (
	"path/filepath"
	"reflect"
	"testing"

	"go-gallery-fetch/internal/gallery"
	"go-gallery-fetch/internal/models"
)

func sampleInfo(gid uint64, token string) gallery.SpiderInfo {
	return gallery.SpiderInfo{
		GID:            gid,
		Token:          token,
		Pages:          3,
		PreviewPages:   1,
		PreviewPerPage: 3,
		PTokenMap:      []string{"t0", "t1", "t2"},
	}
}

// TestSpiderInfoRoundTripDownloadDir covers spec.md §8's "persisted
// SpiderInfo reads back equal to what was written" invariant for the
// download-dir (.ehviewer flat file) tier.
func TestSpiderInfoRoundTripDownloadDir(t *testing.T) {
	downloadDir := t.TempDir()
	store := NewSpiderInfoStore(nil)
	identity := models.GalleryIdentity{GID: 42, Token: "tok"}
	want := sampleInfo(identity.GID, identity.Token)

	if err := store.Save(downloadDir, "", want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, ok, err := store.Load(downloadDir, "", identity)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ok {
		t.Fatal("Load: want ok=true")
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

// TestSpiderInfoRoundTripCacheDir covers the same invariant for the
// cache-dir bitcask tier, going through the real gob+gzip encode/decode
// path in bitcask.go and spiderinfo_store.go.
func TestSpiderInfoRoundTripCacheDir(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	store := NewSpiderInfoStore(db)
	identity := models.GalleryIdentity{GID: 7, Token: "tok7"}
	want := sampleInfo(identity.GID, identity.Token)

	// No downloadDir: forces the write/read through the cache tier only.
	if err := store.Save("", "", want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, ok, err := store.Load("", "", identity)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ok {
		t.Fatal("Load: want ok=true")
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

// TestSpiderInfoLoadRejectsMismatchedIdentityDownloadDir covers spec.md
// §8's "a SpiderInfo with mismatching gid or token is rejected on load"
// invariant for the download-dir tier: a record written for one
// identity must not be handed back for a different one.
func TestSpiderInfoLoadRejectsMismatchedIdentityDownloadDir(t *testing.T) {
	downloadDir := t.TempDir()
	store := NewSpiderInfoStore(nil)
	written := models.GalleryIdentity{GID: 1, Token: "correct-token"}

	if err := store.Save(downloadDir, "", sampleInfo(written.GID, written.Token)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if _, ok, err := store.Load(downloadDir, "", models.GalleryIdentity{GID: 1, Token: "wrong-token"}); err != nil || ok {
		t.Fatalf("Load with wrong token = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
	if _, ok, err := store.Load(downloadDir, "", models.GalleryIdentity{GID: 2, Token: "correct-token"}); err != nil || ok {
		t.Fatalf("Load with wrong gid = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

// TestSpiderInfoLoadRejectsMismatchedIdentityCacheDir mirrors the above
// for the cache-dir tier.
func TestSpiderInfoLoadRejectsMismatchedIdentityCacheDir(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	store := NewSpiderInfoStore(db)
	written := models.GalleryIdentity{GID: 9, Token: "correct-token"}

	if err := store.Save("", "", sampleInfo(written.GID, written.Token)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if _, ok, err := store.Load("", "", models.GalleryIdentity{GID: 9, Token: "wrong-token"}); err != nil || ok {
		t.Fatalf("Load with wrong token = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

// TestDecodeSpiderInfoRoundTrip covers the exported decode helper the
// db CLI command uses to read cache-tier records directly.
func TestDecodeSpiderInfoRoundTrip(t *testing.T) {
	want := sampleInfo(3, "tok3")
	raw, err := gobEncode(want)
	if err != nil {
		t.Fatalf("gobEncode returned error: %v", err)
	}
	got, err := DecodeSpiderInfo(raw)
	if err != nil {
		t.Fatalf("DecodeSpiderInfo returned error: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("decode mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}
