// Command publish performs a one-shot immediate publish of an article to the
// requested platforms and prints the per-platform outcomes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/inklet-hq/syndicator/internal/app"
	"github.com/inklet-hq/syndicator/internal/config"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/internal/logger"
	"github.com/inklet-hq/syndicator/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		articleID    = flag.String("article", "", "article id to publish")
		userID       = flag.String("user", "", "owning user id")
		platformList = flag.String("platforms", "", "comma-separated platform list (devto,hashnode,ghost,wordpress,wix)")
		draft        = flag.Bool("draft", false, "create remote posts as drafts")
		scheduleAt   = flag.String("at", "", "RFC3339 time to defer publishing to (enqueues instead of publishing now)")
	)
	flag.Parse()

	if *articleID == "" || *userID == "" || *platformList == "" {
		flag.Usage()
		return fmt.Errorf("article, user, and platforms are required")
	}

	targets, err := parsePlatforms(*platformList)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	syndicator, err := app.NewSyndicator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer syndicator.Store().Close()

	if *scheduleAt != "" {
		at, err := time.Parse(time.RFC3339, *scheduleAt)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		itemID, err := queue.Enqueue(ctx, syndicator.Store(), *articleID, *userID, targets, at)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued publish job %s for %s\n", itemID, at.Format(time.RFC3339))
		return nil
	}

	results, err := syndicator.Orchestrator().PublishToMultiplePlatforms(ctx, *articleID, *userID, targets, !*draft)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func parsePlatforms(raw string) ([]domain.Platform, error) {
	parts := strings.Split(raw, ",")
	targets := make([]domain.Platform, 0, len(parts))
	for _, part := range parts {
		p, err := domain.ParsePlatform(part)
		if err != nil {
			return nil, err
		}
		targets = append(targets, p)
	}
	return targets, nil
}
