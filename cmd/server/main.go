package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/handler"
	"github.com/masapokki/line-night-idea-enhancer/internal/pendingstate"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/github"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/line"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/llm"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/mermaid"
	"github.com/masapokki/line-night-idea-enhancer/internal/repository"
	"github.com/masapokki/line-night-idea-enhancer/internal/router"
	"github.com/masapokki/line-night-idea-enhancer/internal/service"
	"github.com/masapokki/line-night-idea-enhancer/internal/service/enhancer"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg := config.GetConfig()

	for _, dir := range []string{cfg.Data.Dir, cfg.Data.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			klog.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	store, err := repository.NewStore(cfg.DatabasePath())
	if err != nil {
		klog.Fatalf("failed to open database: %v", err)
	}

	pending, err := pendingstate.NewLRUStore(pendingstate.DefaultLRUCapacity)
	if err != nil {
		klog.Fatalf("failed to create pending store: %v", err)
	}

	archive := service.NewArchiveService(store, github.NewClient(cfg))
	bot := service.NewBotService(
		cfg,
		line.NewClient(cfg),
		enhancer.New(llm.NewClient(cfg)),
		archive,
		pending,
		mermaid.NewCLIRenderer(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go service.NewMemoryMonitor(cfg, pending).Run(ctx)

	r := router.New(cfg, handler.NewWebhookHandler(cfg, bot))
	klog.Infof("starting server on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		klog.Fatalf("server exited: %v", err)
	}
}
