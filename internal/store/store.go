// Package store is a filesystem-backed, content-addressed
// implementation of the gallery coordinator's Store contract (§6):
// downloaded page bytes are named by their BLAKE3 digest, with a
// per-gallery manifest mapping page index to digest so pages can be
// looked up, checked for existence, and removed by index.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"go-gallery-fetch/internal/helpers"
	"go-gallery-fetch/internal/models"
)

type manifestEntry struct {
	Digest string `json:"digest"`
	Ext    string `json:"ext"`
}

// FSStore implements gallery.Store for a single (gid, token) gallery.
// One instance is created per coordinator by the registry's NewDeps
// factory.
type FSStore struct {
	gid          uint64
	downloadRoot string // "" disables the download tier
	cacheRoot    string // "" disables the cache tier

	mode atomic.Int32 // models.Mode

	mu        sync.Mutex
	manifests map[models.Mode]map[uint32]manifestEntry

	writeLocks map[uint32]bool
	readRefs   map[uint32]int
}

// NewFSStore opens (or lazily creates) the manifests for both tiers.
// Either root may be empty to disable that tier.
func NewFSStore(gid uint64, downloadRoot, cacheRoot string) (*FSStore, error) {
	s := &FSStore{
		gid:          gid,
		downloadRoot: downloadRoot,
		cacheRoot:    cacheRoot,
		manifests:    make(map[models.Mode]map[uint32]manifestEntry),
		writeLocks:   make(map[uint32]bool),
		readRefs:     make(map[uint32]int),
	}
	for _, m := range []models.Mode{models.ModeDownload, models.ModeRead} {
		manifest, err := loadManifest(s.manifestPath(m))
		if err != nil {
			return nil, err
		}
		s.manifests[m] = manifest
	}
	return s, nil
}

func (s *FSStore) SetMode(mode models.Mode) {
	s.mode.Store(int32(mode))
}

func (s *FSStore) currentMode() models.Mode {
	return models.Mode(s.mode.Load())
}

func (s *FSStore) root(mode models.Mode) string {
	if mode == models.ModeDownload {
		return s.downloadRoot
	}
	return s.cacheRoot
}

func (s *FSStore) galleryDir(mode models.Mode) string {
	root := s.root(mode)
	if root == "" {
		return ""
	}
	return filepath.Join(root, strconv.FormatUint(s.gid, 10))
}

func (s *FSStore) manifestPath(mode models.Mode) string {
	dir := s.galleryDir(mode)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "manifest.json")
}

func (s *FSStore) contentPath(mode models.Mode, entry manifestEntry) string {
	dir := s.galleryDir(mode)
	fan := entry.Digest
	if len(fan) >= 2 {
		fan = entry.Digest[:2]
	}
	name := entry.Digest
	if entry.Ext != "" {
		name += "." + entry.Ext
	}
	return filepath.Join(dir, fan, name)
}

// DownloadDir reports the per-gallery directory under the download
// tier, used by the seed command. It does not check whether every
// page has finished.
func (s *FSStore) DownloadDir() (string, bool) {
	dir := s.galleryDir(models.ModeDownload)
	return dir, dir != ""
}

func (s *FSStore) Contains(index uint32) bool {
	mode := s.currentMode()
	s.mu.Lock()
	entry, ok := s.manifests[mode][index]
	s.mu.Unlock()
	if !ok {
		return false
	}
	_, err := os.Stat(s.contentPath(mode, entry))
	return err == nil
}

func (s *FSStore) Remove(index uint32) error {
	mode := s.currentMode()
	s.mu.Lock()
	entry, ok := s.manifests[mode][index]
	if ok {
		delete(s.manifests[mode], index)
	}
	manifest := cloneManifest(s.manifests[mode])
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.Remove(s.contentPath(mode, entry)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing page %d: %w", index, err)
	}
	return saveManifest(s.manifestPath(mode), manifest)
}

func (s *FSStore) finalize(mode models.Mode, index uint32, entry manifestEntry) error {
	s.mu.Lock()
	if s.manifests[mode] == nil {
		s.manifests[mode] = make(map[uint32]manifestEntry)
	}
	s.manifests[mode][index] = entry
	manifest := cloneManifest(s.manifests[mode])
	s.mu.Unlock()
	return saveManifest(s.manifestPath(mode), manifest)
}

func cloneManifest(m map[uint32]manifestEntry) map[uint32]manifestEntry {
	out := make(map[uint32]manifestEntry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func loadManifest(path string) (map[uint32]manifestEntry, error) {
	if path == "" {
		return make(map[uint32]manifestEntry), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[uint32]manifestEntry), nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var keyed map[string]manifestEntry
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	out := make(map[uint32]manifestEntry, len(keyed))
	for k, v := range keyed {
		n, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			continue
		}
		out[uint32(n)] = v
	}
	return out, nil
}

func saveManifest(path string, manifest map[uint32]manifestEntry) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}
	keyed := make(map[string]manifestEntry, len(manifest))
	for k, v := range manifest {
		keyed[strconv.FormatUint(uint64(k), 10)] = v
	}
	raw, err := json.Marshal(keyed)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// digestFile is a thin indirection so pipes.go can be tested without
// touching the real filesystem hashing path if ever needed.
var digestFile = helpers.DigestFile
