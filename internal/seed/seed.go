// Package seed packages a fully-downloaded gallery directory into a
// .torrent file, the way the teacher's torrent.go builds .torrent
// files for a finished model download.
package seed

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	log "github.com/sirupsen/logrus"
)

const pieceLength = 512 * 1024

// Result reports where the generated torrent and magnet link ended up.
type Result struct {
	TorrentPath string
	MagnetURI   string
}

// GenerateTorrent builds a .torrent file for everything under
// sourcePath (a gallery's download directory) and writes it alongside
// the directory. When a .torrent already exists there and overwrite is
// false, it is kept and only its path is returned.
func GenerateTorrent(sourcePath string, trackers []string, overwrite bool) (Result, error) {
	stat, err := os.Stat(sourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("stating source path %s: %w", sourcePath, err)
	}
	if !stat.IsDir() {
		return Result{}, fmt.Errorf("source path is not a directory: %s", sourcePath)
	}

	outPath := filepath.Join(filepath.Dir(sourcePath), filepath.Base(sourcePath)+".torrent")
	if !overwrite {
		if _, err := os.Stat(outPath); err == nil {
			log.WithField("path", outPath).Info("torrent already exists, skipping (use --overwrite to replace)")
			return Result{TorrentPath: outPath}, nil
		}
	}

	mi := metainfo.MetaInfo{}
	validTrackers := validateTrackers(trackers)
	if len(validTrackers) > 0 {
		mi.Announce = validTrackers[0]
		mi.AnnounceList = [][]string{validTrackers}
	}
	mi.CreatedBy = "go-gallery-fetch"
	mi.CreationDate = time.Now().Unix()

	info := metainfo.Info{
		PieceLength: pieceLength,
		Name:        filepath.Base(sourcePath),
	}
	if err := info.BuildFromFilePath(sourcePath); err != nil {
		return Result{}, fmt.Errorf("building torrent info from %s: %w", sourcePath, err)
	}

	mi.InfoBytes, err = bencode.Marshal(info)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling torrent info: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("creating torrent file %s: %w", outPath, err)
	}
	writeErr := mi.Write(f)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(outPath)
		return Result{}, fmt.Errorf("writing torrent file %s: %w", outPath, writeErr)
	}
	if closeErr != nil {
		return Result{}, fmt.Errorf("closing torrent file %s: %w", outPath, closeErr)
	}

	return Result{TorrentPath: outPath, MagnetURI: magnetURI(mi, info)}, nil
}

func validateTrackers(trackers []string) []string {
	var valid []string
	for _, tracker := range trackers {
		u, err := url.Parse(tracker)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "udp") {
			log.WithField("tracker", tracker).Warn("invalid or unsupported tracker URL, skipping")
			continue
		}
		valid = append(valid, tracker)
	}
	return valid
}

func magnetURI(mi metainfo.MetaInfo, info metainfo.Info) string {
	hash := mi.HashInfoBytes()
	parts := []string{
		fmt.Sprintf("magnet:?xt=urn:btih:%s", hash.HexString()),
		fmt.Sprintf("dn=%s", url.QueryEscape(info.Name)),
	}
	seen := make(map[string]struct{})
	for _, tier := range mi.AnnounceList {
		for _, tr := range tier {
			if _, ok := seen[tr]; ok {
				continue
			}
			seen[tr] = struct{}{}
			parts = append(parts, fmt.Sprintf("tr=%s", url.QueryEscape(tr)))
		}
	}
	uri := parts[0]
	for _, p := range parts[1:] {
		uri += "&" + p
	}
	return uri
}
