// Package mermaid renders Mermaid diagram source to PNG by shelling out
// to the mermaid-cli (mmdc) binary.
package mermaid

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
)

const defaultTimeout = 2 * time.Minute

// puppeteerConfig disables the Chromium sandbox so rendering works inside
// containers that do not grant the needed kernel capabilities.
const puppeteerConfig = `{"args":["--no-sandbox","--disable-setuid-sandbox","--disable-dev-shm-usage"]}`

// Renderer turns Mermaid source into a PNG at outputPath.
type Renderer interface {
	Render(ctx context.Context, source, outputPath string) error
}

// CLIRenderer invokes mmdc. Scratch files live in the configured temp
// directory and are removed on every exit path; only the output PNG
// survives a successful run.
type CLIRenderer struct {
	command    string
	theme      string
	background string
	width      int
	height     int
	scale      int
	cssFile    string
	tempDir    string
	timeout    time.Duration
}

func NewCLIRenderer(cfg *config.Config) *CLIRenderer {
	timeout := cfg.Mermaid.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CLIRenderer{
		command:    cfg.Mermaid.Command,
		theme:      cfg.Mermaid.Theme,
		background: cfg.Mermaid.Background,
		width:      cfg.Mermaid.Width,
		height:     cfg.Mermaid.Height,
		scale:      cfg.Mermaid.Scale,
		cssFile:    cfg.Mermaid.CSSFile,
		tempDir:    cfg.Data.TempDir,
		timeout:    timeout,
	}
}

func (r *CLIRenderer) Render(ctx context.Context, source, outputPath string) error {
	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare temp dir: %w", err)
	}

	scratch := uuid.NewString()
	inputPath := filepath.Join(r.tempDir, scratch+".mmd")
	puppeteerPath := filepath.Join(r.tempDir, scratch+".puppeteer.json")
	defer os.Remove(inputPath)
	defer os.Remove(puppeteerPath)

	if err := os.WriteFile(inputPath, []byte(source), 0o644); err != nil {
		return fmt.Errorf("failed to write diagram source: %w", err)
	}
	if err := os.WriteFile(puppeteerPath, []byte(puppeteerConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write puppeteer config: %w", err)
	}

	args := []string{
		"-i", inputPath,
		"-o", outputPath,
		"-t", r.theme,
		"-b", r.background,
		"-w", strconv.Itoa(r.width),
		"-H", strconv.Itoa(r.height),
		"-s", strconv.Itoa(r.scale),
		"-p", puppeteerPath,
	}
	if r.cssFile != "" {
		args = append(args, "-C", r.cssFile)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	klog.V(6).Infof("rendering mindmap: %s %v", r.command, args)
	out, err := exec.CommandContext(ctx, r.command, args...).CombinedOutput()
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("mmdc failed: %w: %s", err, string(out))
	}
	return nil
}
