package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolP("torrents", "t", false, "Also remove *.torrent files left by the seed command")
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove orphaned partial-page downloads from the save path",
	Long: `Recursively scans the configured SavePath and removes any page-*.tmp
files left behind by an interrupted download (see internal/store's
write-then-rename output pipe). Optionally removes *.torrent files
generated by the seed command as well.`,
	Run: runClean,
}

func runClean(cmd *cobra.Command, args []string) {
	cfg := globalConfig
	savePath := cfg.SavePath

	cleanTorrents, _ := cmd.Flags().GetBool("torrents")

	if savePath == "" {
		if cfg.CacheDirPath != "" {
			savePath = cfg.CacheDirPath
			log.Warnf("SavePath is empty, cleaning the cache directory instead: %s", savePath)
		} else {
			log.Error("SavePath is not configured (and no CacheDirPath to fall back to). Cannot determine where to clean.")
			os.Exit(1)
		}
	}
	info, err := os.Stat(savePath)
	if os.IsNotExist(err) {
		log.Errorf("SavePath directory does not exist: %s", savePath)
		os.Exit(1)
	}
	if err != nil {
		log.Errorf("Error accessing SavePath %q: %v", savePath, err)
		os.Exit(1)
	}
	if !info.IsDir() {
		log.Errorf("SavePath is not a directory: %s", savePath)
		os.Exit(1)
	}

	logLine := fmt.Sprintf("Scanning gallery directories under %s for orphaned page-*.tmp files", savePath)
	if cleanTorrents {
		logLine += " (and *.torrent files)"
	}
	log.Info(logLine + "...")

	var tmpRemoved, torrentRemoved int64
	var filesFailed int64

	walkErr := filepath.Walk(savePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("Error accessing path %q during scan: %v", path, err)
			return nil
		}
		if info.IsDir() {
			return nil
		}

		name := info.Name()
		shouldRemove := false
		fileType := ""

		if strings.HasPrefix(name, "page-") && strings.HasSuffix(name, ".tmp") {
			shouldRemove = true
			fileType = "orphaned page download"
		} else if cleanTorrents && strings.HasSuffix(strings.ToLower(name), ".torrent") {
			shouldRemove = true
			fileType = "torrent"
		}

		if shouldRemove {
			log.Debugf("Found %s: %s", fileType, path)
			if err := os.Remove(path); err != nil {
				if os.IsNotExist(err) {
					log.Warnf("Attempted to remove %s %q, but it was already gone.", fileType, path)
				} else {
					log.Errorf("Failed to remove %s %q: %v", fileType, path, err)
					filesFailed++
				}
			} else {
				log.Infof("Removed %s: %s", fileType, path)
				switch fileType {
				case "orphaned page download":
					tmpRemoved++
				case "torrent":
					torrentRemoved++
				}
			}
		}
		return nil
	})

	if walkErr != nil {
		log.Errorf("Error during directory walk of %q: %v", savePath, walkErr)
	}

	var summaryParts []string
	if tmpRemoved > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d orphaned page download(s)", tmpRemoved))
	}
	if torrentRemoved > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d torrent file(s)", torrentRemoved))
	}

	summary := "Clean complete. Removed: "
	if len(summaryParts) > 0 {
		summary += strings.Join(summaryParts, ", ")
	} else {
		summary += "0 files"
	}

	if filesFailed > 0 {
		summary += fmt.Sprintf(". Failed to remove %d file(s).", filesFailed)
	}
	log.Info(summary)

	if filesFailed > 0 || walkErr != nil {
		os.Exit(1)
	}
}
