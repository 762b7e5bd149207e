package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zachdehooge/radar-dashboard/internal/alerts"
	"github.com/Zachdehooge/radar-dashboard/internal/generator"
	"github.com/Zachdehooge/radar-dashboard/internal/log"
	"github.com/Zachdehooge/radar-dashboard/internal/rainviewer"
	"github.com/Zachdehooge/radar-dashboard/internal/server"
	"github.com/Zachdehooge/radar-dashboard/internal/tiles"
	"github.com/Zachdehooge/radar-dashboard/internal/timeline"
)

var (
	listenAddr string
	regionKey  string
	outputDir  string
	verbose    bool
	interval   int
	watchMode  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "radar-dashboard",
		Short: "Serve an animated weather radar map",
		Long: `Radar Dashboard fetches the public RainViewer tile index and serves
an interactive map page that animates the radar frames. The US region
also overlays active National Weather Service alerts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	// Flags
	rootCmd.PersistentFlags().StringVarP(&regionKey, "region", "r", "us", "Map region: uk, us or global")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&interval, "interval", "i", 300, "Refresh interval in seconds (minimum 30)")
	rootCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "HTTP listen address")

	// Additional commands
	addGenerateCmd(rootCmd)
	addFramesCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configureLogging() {
	level := "info"
	if verbose {
		level = "debug"
	}
	log.Configure(log.Config{Level: level})
}

func refreshInterval() time.Duration {
	// Enforce minimum interval
	if interval < 30 {
		interval = 30
	}
	return time.Duration(interval) * time.Second
}

// runServe starts the HTTP server until interrupted.
func runServe(cmd *cobra.Command) error {
	configureLogging()

	region, err := generator.RegionByKey(regionKey)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Listen:      listenAddr,
		Region:      region,
		Interval:    refreshInterval(),
		TileOptions: tiles.DefaultOptions(),
	}, rainviewer.NewClient(), alerts.NewClient())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println(fmt.Sprintf("Serving %s on %s. Press Ctrl+C to stop.", region.Title, listenAddr))
	return srv.Run(ctx)
}

// addGenerateCmd adds a 'generate' subcommand that writes a static page
// plus frames.json (and alerts.json for the US region) instead of serving.
func addGenerateCmd(rootCmd *cobra.Command) {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a static radar map page and its JSON data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging()

			region, err := generator.RegionByKey(regionKey)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}

			alertsURL := ""
			alertsPath := ""
			if region.Alerts {
				alertsURL = "alerts.json"
				alertsPath = filepath.Join(outputDir, "alerts.json")
			}

			pagePath := filepath.Join(outputDir, "radar.html")
			err = generator.GeneratePage(pagePath, generator.PageData{
				Region:    region,
				FramesURL: "frames.json",
				AlertsURL: alertsURL,
				RefreshMS: int(refreshInterval() / time.Millisecond),
				TickMS:    int(timeline.DefaultTick / time.Millisecond),
			})
			if err != nil {
				return fmt.Errorf("failed to generate page: %w", err)
			}
			cmd.Println(fmt.Sprintf("Radar map page saved to %s", pagePath))

			poller := &generator.Poller{
				Region:     region,
				Frames:     rainviewer.NewClient(),
				Alerts:     alerts.NewClient(),
				Options:    tiles.DefaultOptions(),
				FramesPath: filepath.Join(outputDir, "frames.json"),
				AlertsPath: alertsPath,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !watchMode {
				poller.Poll(ctx)
				return nil
			}

			cmd.Println(fmt.Sprintf("Watch mode activated. Updating every %d seconds. Press Ctrl+C to stop.", interval))
			cmd.Println(fmt.Sprintf("Open %s in a browser (serve the directory with any static file server).", pagePath))
			poller.Run(ctx, refreshInterval())
			return nil
		},
	}

	generateCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	generateCmd.Flags().BoolVar(&watchMode, "watch", false, "Continuously update the JSON data files")

	rootCmd.AddCommand(generateCmd)
}

// addFramesCmd adds a 'frames' subcommand to show the current frame
// index without generating anything.
func addFramesCmd(rootCmd *cobra.Command) {
	framesCmd := &cobra.Command{
		Use:   "frames",
		Short: "List the current radar frame index",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging()

			idx, err := rainviewer.NewClient().FetchIndex(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch frame index: %w", err)
			}

			frames := idx.Frames()
			if len(frames) == 0 {
				cmd.Println("No radar frames available.")
				return nil
			}

			opts := tiles.DefaultOptions()
			cmd.Println(fmt.Sprintf("Host: %s", idx.Host))
			cmd.Println(fmt.Sprintf("Frames: %d past, %d nowcast", len(idx.Radar.Past), len(idx.Radar.Nowcast)))
			for i, f := range frames {
				kind := "past"
				if i >= len(idx.Radar.Past) {
					kind = "nowcast"
				}
				cmd.Println("---")
				cmd.Println(fmt.Sprintf("Index: %d (%s)", i, kind))
				cmd.Println(fmt.Sprintf("Time: %s", time.Unix(f.Time, 0).UTC().Format(time.RFC3339)))
				cmd.Println(fmt.Sprintf("Tiles: %s", tiles.URLTemplate(idx.Host, f.Path, opts)))
			}
			return nil
		},
	}

	rootCmd.AddCommand(framesCmd)
}
