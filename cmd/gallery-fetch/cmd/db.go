package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-gallery-fetch/internal/database"
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbViewCmd)
	dbCmd.AddCommand(dbCompactCmd)
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the cache-tier SpiderInfo database",
}

var dbViewCmd = &cobra.Command{
	Use:   "view",
	Short: "List every SpiderInfo record cached in the database",
	RunE:  runDbView,
}

var dbCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Reclaim space by rewriting the database's data files",
	RunE:  runDbCompact,
}

func openCacheDB() (*database.DB, error) {
	if globalConfig.DatabasePath == "" {
		return nil, fmt.Errorf("database path is not set in the configuration")
	}
	return database.Open(globalConfig.DatabasePath)
}

func runDbView(cmd *cobra.Command, args []string) error {
	db, err := openCacheDB()
	if err != nil {
		return err
	}
	defer db.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GID\tToken\tPages\tPreviewPages\tPreviewPerPage")
	fmt.Fprintln(tw, "---\t-----\t-----\t------------\t--------------")

	count := 0
	err = db.Fold(func(key, value []byte) error {
		if !strings.HasPrefix(string(key), "spiderinfo_") {
			return nil
		}
		info, err := database.DecodeSpiderInfo(value)
		if err != nil {
			log.WithError(err).Warnf("skipping unreadable record %s", key)
			return nil
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", info.GID, info.Token, info.Pages, info.PreviewPages, info.PreviewPerPage)
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning database: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	log.Infof("%d records", count)
	return nil
}

func runDbCompact(cmd *cobra.Command, args []string) error {
	db, err := openCacheDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Merge(); err != nil {
		return fmt.Errorf("compacting database: %w", err)
	}
	log.Info("database compacted")
	return nil
}
