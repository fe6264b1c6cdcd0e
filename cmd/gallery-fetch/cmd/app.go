package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"go-gallery-fetch/internal/api"
	"go-gallery-fetch/internal/database"
	"go-gallery-fetch/internal/gallery"
	"go-gallery-fetch/internal/models"
	"go-gallery-fetch/internal/parser"
	"go-gallery-fetch/internal/store"
)

// app bundles the shared collaborators every gallery subcommand needs:
// one registry for the process, backed by one cache-tier database.
type app struct {
	registry *gallery.Registry
	cacheDB  *database.DB
	client   *api.Client
}

// newApp wires a Registry whose NewDeps factory builds a fresh
// per-gallery Store on every Acquire of a previously-unseen gid,
// sharing one HTTP client, parser set, and SpiderInfoStore across all
// galleries in this process.
func newApp(cfg models.Config) (*app, error) {
	var cacheDB *database.DB
	if cfg.DatabasePath != "" {
		db, err := database.Open(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening cache database: %w", err)
		}
		cacheDB = db
	}

	timeout := time.Duration(cfg.ApiClientTimeoutSec) * time.Second
	logPath := filepath.Join(cfg.SavePath, "api.log")
	client, err := api.NewClient("", timeout, cfg.LogApiRequests, logPath)
	if err != nil {
		return nil, fmt.Errorf("building HTTP client: %w", err)
	}

	infoStore := database.NewSpiderInfoStore(cacheDB)
	detailParser := parser.DetailHTMLParser{}
	previewParser := parser.PreviewHTMLParser{}
	pageParser := parser.PageHTMLParser{}

	newDeps := func(identity models.GalleryIdentity) gallery.Deps {
		fsStore, err := store.NewFSStore(identity.GID, cfg.SavePath, cfg.CacheDirPath)
		if err != nil {
			log.WithError(err).Errorf("building store for gallery %d, falling back to cache-only", identity.GID)
			fsStore, _ = store.NewFSStore(identity.GID, "", cfg.CacheDirPath)
		}
		return gallery.Deps{
			HTTPDoer:      client,
			DetailParser:  detailParser,
			PreviewParser: previewParser,
			PageParser:    pageParser,
			Store:         fsStore,
			InfoStore:     infoStore,
			DownloadDir:   cfg.SavePath,
			CacheDir:      cfg.CacheDirPath,
		}
	}

	return &app{registry: gallery.NewRegistry(newDeps), cacheDB: cacheDB, client: client}, nil
}

func (a *app) Close() {
	if a.cacheDB != nil {
		if err := a.cacheDB.Close(); err != nil {
			log.WithError(err).Warn("closing cache database")
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			log.WithError(err).Warn("closing API client")
		}
	}
}
