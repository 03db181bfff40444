// Package archiver orchestrates a month export: resolve each username to an
// id, walk the timeline for the month window, apply the final window filter,
// and write the per-user JSON document.
package archiver

import (
	"fmt"

	"github.com/Zxoir/twitter-month-archiver/pkg/config"
	"github.com/Zxoir/twitter-month-archiver/pkg/fetcher"
	"github.com/Zxoir/twitter-month-archiver/pkg/logger"
	"github.com/Zxoir/twitter-month-archiver/pkg/ratelimit"
	"github.com/Zxoir/twitter-month-archiver/pkg/snapshot"
	"github.com/Zxoir/twitter-month-archiver/pkg/storage"
	"github.com/Zxoir/twitter-month-archiver/pkg/twitter"
	"github.com/Zxoir/twitter-month-archiver/pkg/window"
)

// UserResolver maps a handle to a numeric user id. An empty id with a nil
// error means the user could not be resolved; *twitter.Client satisfies this.
type UserResolver interface {
	LookupUser(username string) (string, error)
}

// Export is the final per-user output document.
type Export struct {
	Username  string         `json:"username"`
	UserID    string         `json:"user_id"`
	Month     string         `json:"month"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Count     int            `json:"count"`
	Posts     []twitter.Post `json:"posts"`
}

// Archiver runs month exports for a list of usernames, one at a time.
type Archiver struct {
	resolver UserResolver
	fetcher  *fetcher.Fetcher
	storage  *storage.Manager
	cfg      *config.Config
	logger   logger.Logger
}

// New creates an Archiver from the configuration.
func New(cfg *config.Config) (*Archiver, error) {
	log := logger.GetLogger()

	client := twitter.NewClient(cfg.API.BearerToken, cfg.API.RequestTimeout, log,
		twitter.WithBaseURL(cfg.API.BaseURL),
		twitter.WithBackoff(ratelimit.NewWithSleep(cfg.RateLimit.DefaultBackoff, nil)),
		twitter.WithMaxThrottleRetries(cfg.RateLimit.MaxThrottleRetries),
	)

	storageManager, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	return &Archiver{
		resolver: client,
		fetcher:  fetcher.New(client, log),
		storage:  storageManager,
		cfg:      cfg,
		logger:   log,
	}, nil
}

// Run exports the configured month for each username in order. A username
// that fails to resolve or fetch is logged and skipped; remaining usernames
// still run. Only setup problems (an unparseable month) are returned.
func (a *Archiver) Run(usernames []string) error {
	win, err := window.ParseMonth(a.cfg.Export.Month)
	if err != nil {
		return err
	}

	for _, username := range usernames {
		if err := a.exportUser(username, win); err != nil {
			a.logger.WarnWithFields("skipping username", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
		}
	}

	return nil
}

// exportUser performs the full export pipeline for one username.
func (a *Archiver) exportUser(username string, win window.Window) error {
	userID, err := a.resolver.LookupUser(username)
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if userID == "" {
		return fmt.Errorf("could not resolve @%s to a user id", username)
	}

	month := a.cfg.Export.Month
	a.logger.InfoWithFields("exporting user", map[string]interface{}{
		"username":   username,
		"user_id":    userID,
		"month":      month,
		"start_time": win.StartISO(),
		"end_time":   win.EndISO(),
	})

	posts, fetchErr := a.fetcher.FetchWindow(userID, win, fetcher.Options{
		PageSize:        a.cfg.Export.PerPage,
		IncludeReplies:  a.cfg.Export.IncludeReplies,
		IncludeRetweets: a.cfg.Export.IncludeRetweets,
		Snapshot:        snapshot.NewWriter(a.storage.PartialPath(username, month)),
	})
	if fetchErr != nil {
		// Partial success is a first-class outcome: whatever accumulated
		// before the error still gets filtered and written.
		a.logger.WarnWithFields("fetch stopped early, writing partial results", map[string]interface{}{
			"username": username,
			"fetched":  len(posts),
			"error":    fetchErr.Error(),
		})
	}

	kept := window.Filter(posts, win)

	export := &Export{
		Username:  username,
		UserID:    userID,
		Month:     month,
		StartTime: win.StartISO(),
		EndTime:   win.EndISO(),
		Count:     len(kept),
		Posts:     kept,
	}

	outPath := a.storage.ExportPath(username, month)
	if err := a.storage.WriteJSON(outPath, export); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	a.logger.InfoWithFields("export saved", map[string]interface{}{
		"username": username,
		"count":    export.Count,
		"path":     outPath,
	})

	return nil
}
