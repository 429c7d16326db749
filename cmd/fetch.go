package main

import (
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/fetcher"
)

var (
	fetchURLs    []string
	fetchExtract bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download annual extract files into the data directory",
	Long: "Rate-limited download of IRS 990 extract CSVs and IPEDS survey archives. " +
		"ZIP archives are unpacked in place with --extract.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(fetchURLs) == 0 {
			return eris.New("no URLs given; pass --url")
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.Fetch.UserAgent,
			Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries:   cfg.Fetch.MaxRetries,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})

		for _, rawURL := range fetchURLs {
			name := path.Base(rawURL)
			if name == "" || name == "." || name == "/" {
				return eris.Errorf("cannot derive file name from %s", rawURL)
			}
			dest := filepath.Join(cfg.Data.Dir, name)

			n, err := f.DownloadToFile(ctx, rawURL, dest)
			if err != nil {
				return err
			}
			zap.L().Info("downloaded extract",
				zap.String("url", rawURL),
				zap.String("path", dest),
				zap.Int64("bytes", n),
			)

			if fetchExtract && strings.EqualFold(filepath.Ext(dest), ".zip") {
				files, err := fetcher.ExtractZIP(dest, cfg.Data.Dir)
				if err != nil {
					return err
				}
				zap.L().Info("extracted archive",
					zap.String("path", dest),
					zap.Int("files", len(files)),
				)
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchURLs, "url", nil, "extract URL to download (repeatable)")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "unpack downloaded ZIP archives")
	rootCmd.AddCommand(fetchCmd)
}
