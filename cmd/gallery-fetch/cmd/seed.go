package cmd

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-gallery-fetch/internal/seed"
	"go-gallery-fetch/internal/store"
)

var seedOverwrite bool

func init() {
	seedCmd.Flags().BoolVar(&seedOverwrite, "overwrite", false, "Replace an existing .torrent file")
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed <gid>",
	Short: "Package a gallery's download directory into a .torrent",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	gid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid gid %q: %w", args[0], err)
	}

	fsStore, err := store.NewFSStore(gid, globalConfig.SavePath, globalConfig.CacheDirPath)
	if err != nil {
		return fmt.Errorf("opening store for gallery %d: %w", gid, err)
	}

	dir, ok := fsStore.DownloadDir()
	if !ok {
		return fmt.Errorf("no download directory configured (set save-path)")
	}

	result, err := seed.GenerateTorrent(dir, globalConfig.Trackers, seedOverwrite)
	if err != nil {
		return fmt.Errorf("generating torrent for gallery %d: %w", gid, err)
	}

	log.Infof("wrote %s", result.TorrentPath)
	if result.MagnetURI != "" {
		fmt.Println(result.MagnetURI)
	}
	return nil
}
