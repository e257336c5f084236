package service

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/pendingstate"
)

// imageMaxAge is how long rendered images stay available under /temp.
const imageMaxAge = time.Hour

// MemoryMonitor periodically checks heap usage, shedding pending state and
// forcing a GC when the threshold is crossed, and sweeps stale rendered
// images from the temp directory.
type MemoryMonitor struct {
	maxBytes uint64
	interval time.Duration
	tempDir  string
	pending  pendingstate.Store
}

func NewMemoryMonitor(cfg *config.Config, pending pendingstate.Store) *MemoryMonitor {
	interval := cfg.Memory.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxMB := cfg.Memory.MaxRSSMB
	if maxMB == 0 {
		maxMB = 450
	}
	return &MemoryMonitor{
		maxBytes: maxMB * 1024 * 1024,
		interval: interval,
		tempDir:  cfg.Data.TempDir,
		pending:  pending,
	}
}

// Run blocks until ctx is cancelled. Intended to be started as a goroutine
// from main.
func (m *MemoryMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
			m.sweepImages(time.Now())
		}
	}
}

func (m *MemoryMonitor) check() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.Alloc <= m.maxBytes {
		return
	}
	klog.V(6).Infof("memory threshold exceeded: alloc=%dMB limit=%dMB, shedding pending state",
		stats.Alloc/1024/1024, m.maxBytes/1024/1024)
	m.pending.Shed()
	runtime.GC()
	debug.FreeOSMemory()
}

// sweepImages removes rendered PNGs older than imageMaxAge. The public
// /temp URLs go stale with them, which is acceptable: delivery happened
// when the image was pushed.
func (m *MemoryMonitor) sweepImages(now time.Time) {
	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < imageMaxAge {
			continue
		}
		path := filepath.Join(m.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			klog.Errorf("failed to sweep stale image %s: %v", path, err)
			continue
		}
		klog.V(6).Infof("swept stale image %s", path)
	}
}
