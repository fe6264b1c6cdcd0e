package database

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"go-gallery-fetch/internal/gallery"
	"go-gallery-fetch/internal/models"
)

// SpiderInfoStore implements gallery.SpiderInfoStore: a write-through,
// two-tier persistence layer. The download-dir flat file (named
// .ehviewer, matching gallery.SpiderInfoFilename) is preferred on
// read; the cache-dir bitcask database is the fallback/secondary copy.
// cacheDB may be nil to run with the download-dir tier only.
type SpiderInfoStore struct {
	cacheDB *DB
}

// NewSpiderInfoStore wraps an already-open cache-tier database.
func NewSpiderInfoStore(cacheDB *DB) *SpiderInfoStore {
	return &SpiderInfoStore{cacheDB: cacheDB}
}

func flatFilePath(downloadDir string) string {
	return filepath.Join(downloadDir, ".ehviewer")
}

func cacheKey(gid uint64) []byte {
	return []byte("spiderinfo_" + strconv.FormatUint(gid, 10))
}

// Load prefers the download-dir flat file, falling back to the
// cache-dir database (§4.2 step 2).
func (s *SpiderInfoStore) Load(downloadDir, cacheDir string, identity models.GalleryIdentity) (gallery.SpiderInfo, bool, error) {
	if downloadDir != "" {
		if info, ok, err := loadFlatFile(flatFilePath(downloadDir)); err == nil && ok {
			if info.GID == identity.GID && info.Token == identity.Token {
				return info, true, nil
			}
		}
	}

	if s.cacheDB != nil {
		raw, err := s.cacheDB.Get(cacheKey(identity.GID))
		if err == nil {
			var info gallery.SpiderInfo
			if derr := gobDecode(raw, &info); derr == nil && info.GID == identity.GID && info.Token == identity.Token {
				return info, true, nil
			}
		} else if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("spiderinfo: cache-tier lookup failed")
		}
	}

	return gallery.SpiderInfo{}, false, nil
}

// Save writes info through to both tiers, best-effort: an error from
// one tier does not prevent writing the other.
func (s *SpiderInfoStore) Save(downloadDir, cacheDir string, info gallery.SpiderInfo) error {
	var firstErr error
	if downloadDir != "" {
		if err := saveFlatFile(flatFilePath(downloadDir), info); err != nil {
			log.WithError(err).Warn("spiderinfo: download-dir write failed")
			firstErr = err
		}
	}
	if s.cacheDB != nil {
		buf, err := gobEncode(info)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if perr := s.cacheDB.Put(cacheKey(info.GID), buf); perr != nil {
			log.WithError(perr).Warn("spiderinfo: cache-dir write failed")
			if firstErr == nil {
				firstErr = perr
			}
		}
	}
	return firstErr
}

func loadFlatFile(path string) (gallery.SpiderInfo, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return gallery.SpiderInfo{}, false, nil
		}
		return gallery.SpiderInfo{}, false, err
	}
	var info gallery.SpiderInfo
	if err := gobDecode(raw, &info); err != nil {
		return gallery.SpiderInfo{}, false, err
	}
	return info, true, nil
}

func saveFlatFile(path string, info gallery.SpiderInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating download dir for spiderinfo: %w", err)
	}
	buf, err := gobEncode(info)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0600)
}

func gobEncode(v gallery.SpiderInfo) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encoding spiderinfo: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSpiderInfo decodes a raw cache-tier value, for callers (like
// the db command) that scan the database directly rather than going
// through Load.
func DecodeSpiderInfo(raw []byte) (gallery.SpiderInfo, error) {
	var info gallery.SpiderInfo
	err := gobDecode(raw, &info)
	return info, err
}

func gobDecode(raw []byte, v *gallery.SpiderInfo) error {
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decoding spiderinfo: %w", err)
	}
	return nil
}
