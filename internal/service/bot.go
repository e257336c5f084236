package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/model"
	"github.com/masapokki/line-night-idea-enhancer/internal/pendingstate"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/line"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/mermaid"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/mindmap"
)

// detailTrigger is the exact message text that requests the cached
// thinking process instead of starting a new enhancement.
const detailTrigger = "詳細を見る"

const (
	processingNotice = "アイデアを受け付けました！ブラッシュアップ処理を開始します。少々お待ちください。"
	detailPrompt     = "思考プロセスの詳細を見ることができます。"
	noDetailNotice   = "表示できる思考プロセスがありません。まずアイデアを送信してください。"
	genericApology   = "申し訳ありません。処理中に問題が発生しました。しばらくしてからもう一度お試しください。"
)

// Messenger delivers messages through the chat platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []line.Message) error
	Push(ctx context.Context, userID string, messages []line.Message) error
	PushImage(ctx context.Context, userID, imageURL string) error
}

// Enhancer runs the idea pipeline and the outline call.
type Enhancer interface {
	Enhance(ctx context.Context, idea string) *model.EnhancementBundle
	GenerateOutline(ctx context.Context, idea string, bundle *model.EnhancementBundle) string
}

// BotService orchestrates the webhook flow: trigger detection, pipeline,
// archiving, delivery and image rendering.
type BotService struct {
	cfg       *config.Config
	messenger Messenger
	enhancer  Enhancer
	archive   *ArchiveService
	pending   pendingstate.Store
	renderer  mermaid.Renderer
}

func NewBotService(cfg *config.Config, messenger Messenger, enhancer Enhancer, archive *ArchiveService, pending pendingstate.Store, renderer mermaid.Renderer) *BotService {
	return &BotService{
		cfg:       cfg,
		messenger: messenger,
		enhancer:  enhancer,
		archive:   archive,
		pending:   pending,
		renderer:  renderer,
	}
}

// HandleEvents processes webhook events sequentially. A failure in one
// event never aborts the rest.
func (b *BotService) HandleEvents(ctx context.Context, events []line.Event) {
	for _, event := range events {
		if !event.IsTextMessage() {
			klog.V(6).Infof("skipping non-text event type=%s", event.Type)
			continue
		}
		if strings.TrimSpace(event.Message.Text) == detailTrigger {
			b.handleDetailRequest(ctx, event)
			continue
		}
		b.handleIdea(ctx, event)
	}
}

// handleDetailRequest delivers the cached thinking process in two labelled
// parts: the reply token carries part 1 and part 2 follows as a push.
func (b *BotService) handleDetailRequest(ctx context.Context, event line.Event) {
	userID := event.Source.UserID
	tp, ok := b.pending.Get(userID)
	if !ok {
		if err := b.messenger.Reply(ctx, event.ReplyToken, []line.Message{line.NewText(noDetailNotice)}); err != nil {
			klog.Errorf("failed to reply no-detail notice: %v", err)
		}
		return
	}

	part1 := fmt.Sprintf("【思考プロセス 1/2】\n\n■ 分析\n%s\n\n■ 評価\n%s", tp.Analysis, tp.Evaluation)
	part2 := fmt.Sprintf("【思考プロセス 2/2】\n\n■ 拡張\n%s\n\n■ 実現可能性\n%s", tp.Expansion, tp.Feasibility)

	if err := b.messenger.Reply(ctx, event.ReplyToken, []line.Message{line.NewText(part1)}); err != nil {
		klog.Errorf("failed to reply thinking process part 1: %v", err)
		return
	}
	if err := b.messenger.Push(ctx, userID, []line.Message{line.NewText(part2)}); err != nil {
		klog.Errorf("failed to push thinking process part 2: %v", err)
	}
}

func (b *BotService) handleIdea(ctx context.Context, event line.Event) {
	userID := event.Source.UserID
	idea := event.Message.Text

	if err := b.messenger.Reply(ctx, event.ReplyToken, []line.Message{line.NewText(processingNotice)}); err != nil {
		klog.Errorf("failed to reply processing notice: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("idea handling fault for user %s: %v", userID, r)
			if err := b.messenger.Push(ctx, userID, []line.Message{line.NewText(genericApology)}); err != nil {
				klog.Errorf("failed to push apology: %v", err)
			}
		}
	}()

	ideaID, err := b.archive.ArchiveIdea(ctx, userID, idea)
	if err != nil {
		klog.Errorf("failed to archive idea: %v", err)
	}

	bundle := b.enhancer.Enhance(ctx, idea)
	outline := b.enhancer.GenerateOutline(ctx, idea, bundle)

	var resultID string
	if ideaID != "" {
		resultID, err = b.archive.ArchiveResult(ctx, ideaID, bundle, outline)
		if err != nil {
			klog.Errorf("failed to archive result: %v", err)
		}
	}

	b.pending.Put(userID, *bundle.ThinkingProcess())

	messages := line.SplitText("元のアイデア", idea)
	messages = append(messages, line.SplitText("ブラッシュアップされたアイデア", bundle.FinalEnhancement)...)
	messages = append(messages, line.SplitText("マインドマップ", outline)...)
	messages = append(messages, line.NewTextWithMessageButton(detailPrompt, detailTrigger, detailTrigger))
	for _, msg := range messages {
		if err := b.messenger.Push(ctx, userID, []line.Message{msg}); err != nil {
			klog.Errorf("failed to push result message: %v", err)
		}
	}

	if resultID != "" {
		if err := b.archive.MarkResultSent(ctx, resultID); err != nil {
			klog.Errorf("failed to mark result sent: %v", err)
		}
	}

	b.deliverImage(ctx, userID, resultID, outline)
}

// deliverImage renders the outline and pushes the image. Text delivery has
// already happened, so every failure here is logged and absorbed.
func (b *BotService) deliverImage(ctx context.Context, userID, resultID, outline string) {
	publicURL := strings.TrimSuffix(b.cfg.Server.PublicURL, "/")
	if !strings.HasPrefix(publicURL, "https://") {
		klog.V(6).Infof("skipping image delivery: public URL %q is not https", publicURL)
		return
	}

	nodes := mindmap.Parse(outline)
	if len(nodes) == 0 {
		klog.V(6).Infof("skipping image delivery: outline produced no nodes")
		return
	}
	source := b.translate(nodes)

	fileName := resultID + ".png"
	if resultID == "" {
		fileName = "mindmap_" + userID + ".png"
	}
	outputPath := filepath.Join(b.cfg.Data.TempDir, fileName)
	if err := b.renderer.Render(ctx, source, outputPath); err != nil {
		klog.Errorf("failed to render mindmap image: %v", err)
		return
	}

	imageURL := publicURL + "/temp/" + fileName
	if err := b.messenger.PushImage(ctx, userID, imageURL); err != nil {
		klog.Errorf("failed to push mindmap image: %v", err)
		return
	}
	if resultID != "" {
		if err := b.archive.MarkImageGenerated(ctx, resultID); err != nil {
			klog.Errorf("failed to mark image generated: %v", err)
		}
	}
}

// translate picks the configured Mermaid dialect, defaulting to the
// flowchart form.
func (b *BotService) translate(nodes []mindmap.Node) string {
	if b.cfg.Mermaid.Dialect == "mindmap" {
		return mindmap.ToMindmap(nodes)
	}
	return mindmap.ToFlowchart(nodes)
}

// RenderAndPush serves the render endpoint: translate the outline, render
// it and push the image to the user.
func (b *BotService) RenderAndPush(ctx context.Context, userID, outline, resultID string) error {
	publicURL := strings.TrimSuffix(b.cfg.Server.PublicURL, "/")
	if !strings.HasPrefix(publicURL, "https://") {
		return fmt.Errorf("public URL %q is not https", publicURL)
	}
	nodes := mindmap.Parse(outline)
	if len(nodes) == 0 {
		return fmt.Errorf("outline produced no nodes")
	}

	fileName := resultID + ".png"
	outputPath := filepath.Join(b.cfg.Data.TempDir, fileName)
	if err := b.renderer.Render(ctx, b.translate(nodes), outputPath); err != nil {
		return fmt.Errorf("failed to render mindmap: %w", err)
	}
	if err := b.messenger.PushImage(ctx, userID, publicURL+"/temp/"+fileName); err != nil {
		return fmt.Errorf("failed to push image: %w", err)
	}
	if err := b.archive.MarkImageGenerated(ctx, resultID); err != nil {
		klog.Errorf("failed to mark image generated: %v", err)
	}
	return nil
}
