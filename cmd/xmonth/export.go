package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zxoir/twitter-month-archiver/pkg/archiver"
	"github.com/Zxoir/twitter-month-archiver/pkg/auth"
	"github.com/Zxoir/twitter-month-archiver/pkg/config"
	"github.com/Zxoir/twitter-month-archiver/pkg/logger"
	"github.com/Zxoir/twitter-month-archiver/pkg/twitter"
)

var (
	// Export command flags
	bearerToken        string
	month              string
	includeReplies     bool
	includeRetweets    bool
	outdir             string
	perPage            int
	maxThrottleRetries int
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <username>...",
	Short: "Export a month of posts for one or more usernames",
	Long: `Export every post the given accounts published during a month (UTC).

One JSON file is written per username:
  posts_<username>_<YYYY-MM>.json          the final export
  posts_<username>_<YYYY-MM>.partial.json  progress journal, left on disk

The bearer token is resolved from --bearer-token, the X_BEARER_TOKEN
environment variable, or the secure store ('xmonth auth login').`,
	Example: `  # Export February 2024 for one account
  xmonth export nasa --month 2024-02

  # Several accounts, replies and retweets included
  xmonth export nasa esa --month 2024-02 --include-replies --include-retweets

  # Custom output directory and page size
  xmonth export nasa --month 2024-02 --outdir ./exports --per-page 50`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&bearerToken, "bearer-token", "", "OAuth 2.0 app-only bearer token")
	exportCmd.Flags().StringVarP(&month, "month", "m", "", "target month in YYYY-MM (UTC)")
	exportCmd.Flags().BoolVar(&includeReplies, "include-replies", false, "include replies")
	exportCmd.Flags().BoolVar(&includeRetweets, "include-retweets", false, "include retweets")
	exportCmd.Flags().StringVarP(&outdir, "outdir", "o", "", "output directory (default: current directory)")
	exportCmd.Flags().IntVar(&perPage, "per-page", 100, "max results per page (10-100)")
	exportCmd.Flags().IntVar(&maxThrottleRetries, "max-throttle-retries", 0, "cap throttle retries per request (0 = unlimited)")
}

func runExport(cmd *cobra.Command, args []string) error {
	usernames := make([]string, 0, len(args))
	for _, arg := range args {
		username := strings.TrimPrefix(strings.TrimSpace(arg), "@")
		if username != "" {
			usernames = append(usernames, username)
		}
	}

	flags := make(map[string]interface{})
	if bearerToken != "" {
		flags["bearer-token"] = bearerToken
	}
	if month != "" {
		flags["month"] = month
	}
	if outdir != "" {
		flags["outdir"] = outdir
	}
	if cmd.Flags().Changed("per-page") {
		flags["per-page"] = perPage
	}
	if cmd.Flags().Changed("include-replies") {
		flags["include-replies"] = includeReplies
	}
	if cmd.Flags().Changed("include-retweets") {
		flags["include-retweets"] = includeRetweets
	}
	if maxThrottleRetries > 0 {
		flags["max-throttle-retries"] = maxThrottleRetries
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Info("xmonth starting")

	if cfg.Export.Month == "" {
		return fmt.Errorf("target month is required: pass --month YYYY-MM")
	}

	// Fall back to the secure store when neither flag nor env provided a
	// token. Missing everywhere is fatal before any network call.
	if cfg.API.BearerToken == "" {
		if manager, err := auth.NewManager(); err == nil {
			if token, err := manager.RetrieveDefault(); err == nil {
				cfg.API.BearerToken = token.BearerToken
				logger.WithField("label", token.Label).Info("using stored bearer token")
			}
		}
	}
	if cfg.API.BearerToken == "" {
		logger.Error("no bearer token resolvable")
		fmt.Fprintln(os.Stderr, "Provide a bearer token via --bearer-token, the X_BEARER_TOKEN env var, or 'xmonth auth login'.")
		os.Exit(1)
	}

	// The timeline endpoint accepts 10-100 results per page
	cfg.Export.PerPage = twitter.ClampPageSize(cfg.Export.PerPage)

	arch, err := archiver.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize archiver: %w", err)
	}

	if err := arch.Run(usernames); err != nil {
		return err
	}

	logger.InfoWithFields("export finished", map[string]interface{}{
		"usernames": usernames,
		"month":     cfg.Export.Month,
		"outdir":    cfg.Output.BaseDirectory,
	})
	return nil
}
