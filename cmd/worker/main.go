// The worker runs the batch flows that do not need the webhook server:
// processing ideas that arrived while the bot was down and sending the
// morning digest of unsent results. Meant to run from a scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/github"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/line"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/llm"
	"github.com/masapokki/line-night-idea-enhancer/internal/repository"
	"github.com/masapokki/line-night-idea-enhancer/internal/service"
	"github.com/masapokki/line-night-idea-enhancer/internal/service/enhancer"
)

const morningGreeting = "おはようございます！昨夜のアイデアをブラッシュアップしました✨"

func main() {
	mode := flag.String("mode", "", "worker mode: process or notify")
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	ctx := context.Background()
	cfg := config.GetConfig()

	if err := run(ctx, cfg, *mode); err != nil {
		klog.Errorf("worker failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, mode string) error {
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	mirror := github.NewClient(cfg)
	if err := pullDatabase(ctx, cfg, mirror); err != nil {
		return err
	}

	store, err := repository.NewStore(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	archive := service.NewArchiveService(store, mirror)

	switch mode {
	case "process":
		return processIdeas(ctx, cfg, archive)
	case "notify":
		return notifyResults(ctx, cfg, archive)
	default:
		return fmt.Errorf("unknown mode %q, want process or notify", mode)
	}
}

// pullDatabase refreshes the local document from the mirror so a worker
// run sees ideas recorded by other deployments.
func pullDatabase(ctx context.Context, cfg *config.Config, mirror *github.Client) error {
	if !mirror.Enabled() {
		klog.V(6).Infof("mirror not configured, using local database only")
		return nil
	}
	content, _, err := mirror.GetFile(ctx, "data/database.json")
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			klog.V(6).Infof("no mirrored database yet, starting from local state")
			return nil
		}
		return fmt.Errorf("failed to pull database: %w", err)
	}
	return os.WriteFile(cfg.DatabasePath(), content, 0o644)
}

// processIdeas runs the enhancement pipeline over every unprocessed idea.
// Per-idea failures are logged and the batch continues.
func processIdeas(ctx context.Context, cfg *config.Config, archive *service.ArchiveService) error {
	pipeline := enhancer.New(llm.NewClient(cfg))

	ideas := archive.UnprocessedIdeas()
	klog.Infof("processing %d unprocessed ideas", len(ideas))
	for _, idea := range ideas {
		bundle := pipeline.Enhance(ctx, idea.Content)
		outline := pipeline.GenerateOutline(ctx, idea.Content, bundle)
		resultID, err := archive.ArchiveResult(ctx, idea.ID, bundle, outline)
		if err != nil {
			klog.Errorf("failed to archive result for idea %s: %v", idea.ID, err)
			continue
		}
		klog.Infof("processed idea %s -> %s", idea.ID, resultID)
	}
	return nil
}

// notifyResults delivers the morning digest for every unsent result.
func notifyResults(ctx context.Context, cfg *config.Config, archive *service.ArchiveService) error {
	messenger := line.NewClient(cfg)

	results := archive.UnsentResults()
	klog.Infof("notifying %d unsent results", len(results))
	for resultID, result := range results {
		userID, err := archive.FindIdeaUser(result.IdeaID)
		if err != nil {
			klog.Errorf("failed to resolve user for result %s: %v", resultID, err)
			continue
		}

		messages := []line.Message{line.NewText(morningGreeting)}
		messages = append(messages, line.SplitText("ブラッシュアップされたアイデア", result.EnhancedContent)...)
		messages = append(messages, line.SplitText("マインドマップ", result.MindmapContent)...)
		delivered := true
		for _, msg := range messages {
			if err := messenger.Push(ctx, userID, []line.Message{msg}); err != nil {
				klog.Errorf("failed to push digest for result %s: %v", resultID, err)
				delivered = false
				break
			}
		}
		if !delivered {
			continue
		}
		if err := archive.MarkResultSent(ctx, resultID); err != nil {
			klog.Errorf("failed to mark result %s sent: %v", resultID, err)
		}
	}
	return nil
}
