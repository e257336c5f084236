package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/masapokki/line-night-idea-enhancer/config"
	"github.com/masapokki/line-night-idea-enhancer/internal/model"
	"github.com/masapokki/line-night-idea-enhancer/internal/pendingstate"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/line"
	"github.com/masapokki/line-night-idea-enhancer/internal/repository"
)

type sentMessage struct {
	kind   string // reply, push, image
	target string // reply token or user id
	text   string
	url    string
}

type mockMessenger struct {
	sent     []sentMessage
	replyErr error
}

func (m *mockMessenger) Reply(_ context.Context, replyToken string, messages []line.Message) error {
	for _, msg := range messages {
		m.sent = append(m.sent, sentMessage{kind: "reply", target: replyToken, text: msg.Text})
	}
	return m.replyErr
}

func (m *mockMessenger) Push(_ context.Context, userID string, messages []line.Message) error {
	for _, msg := range messages {
		m.sent = append(m.sent, sentMessage{kind: "push", target: userID, text: msg.Text})
	}
	return nil
}

func (m *mockMessenger) PushImage(_ context.Context, userID, imageURL string) error {
	m.sent = append(m.sent, sentMessage{kind: "image", target: userID, url: imageURL})
	return nil
}

func (m *mockMessenger) textsOf(kind string) []string {
	var out []string
	for _, s := range m.sent {
		if s.kind == kind {
			out = append(out, s.text)
		}
	}
	return out
}

type mockEnhancer struct {
	bundle  *model.EnhancementBundle
	outline string
	panics  bool
}

func (m *mockEnhancer) Enhance(context.Context, string) *model.EnhancementBundle {
	if m.panics {
		panic("pipeline exploded")
	}
	return m.bundle
}

func (m *mockEnhancer) GenerateOutline(context.Context, string, *model.EnhancementBundle) string {
	return m.outline
}

type mockRenderer struct {
	err        error
	called     int
	lastSource string
}

func (m *mockRenderer) Render(_ context.Context, source, outputPath string) error {
	m.called++
	m.lastSource = source
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(outputPath, []byte("png"), 0o644)
}

func testBotService(t *testing.T, messenger *mockMessenger, enh *mockEnhancer, renderer *mockRenderer, publicURL string) (*BotService, pendingstate.Store) {
	t.Helper()
	store, err := repository.NewStore(filepath.Join(t.TempDir(), "database.json"))
	if err != nil {
		t.Fatal(err)
	}
	pending := pendingstate.NewMapStore()
	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: publicURL},
		Data:   config.DataConfig{TempDir: t.TempDir()},
	}
	bot := NewBotService(cfg, messenger, enh, NewArchiveService(store, nil), pending, renderer)
	return bot, pending
}

func ideaEvent(text string) line.Event {
	return line.Event{
		Type:       "message",
		ReplyToken: "reply-token",
		Source:     line.Source{Type: "user", UserID: "U123"},
		Message:    line.EventMessage{ID: "m1", Type: "text", Text: text},
	}
}

func fullBundle() *model.EnhancementBundle {
	return &model.EnhancementBundle{
		Analysis:         "分析結果",
		Evaluation:       "評価結果",
		Expansion:        "拡張結果",
		Feasibility:      "実現可能性結果",
		FinalEnhancement: "ブラッシュアップ済みアイデア",
	}
}

func TestHandleIdeaHappyPath(t *testing.T) {
	messenger := &mockMessenger{}
	renderer := &mockRenderer{}
	bot, pending := testBotService(t, messenger, &mockEnhancer{bundle: fullBundle(), outline: "夜のアイデア\n  - 機能1\n"}, renderer, "https://bot.example.com")

	bot.HandleEvents(context.Background(), []line.Event{ideaEvent("夜に思いついたアイデア")})

	replies := messenger.textsOf("reply")
	if len(replies) != 1 || replies[0] != processingNotice {
		t.Fatalf("expected one processing-notice reply, got %v", replies)
	}

	pushes := messenger.textsOf("push")
	joined := strings.Join(pushes, "\n---\n")
	for _, want := range []string{"【元のアイデア】", "【ブラッシュアップされたアイデア】", "【マインドマップ】", detailPrompt} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected a push containing %q, got %v", want, pushes)
		}
	}

	if renderer.called != 1 {
		t.Errorf("expected one render call, got %d", renderer.called)
	}
	var image *sentMessage
	for i := range messenger.sent {
		if messenger.sent[i].kind == "image" {
			image = &messenger.sent[i]
		}
	}
	if image == nil {
		t.Fatal("expected an image push")
	}
	if !strings.HasPrefix(image.url, "https://bot.example.com/temp/result_") || !strings.HasSuffix(image.url, ".png") {
		t.Errorf("unexpected image URL %q", image.url)
	}

	if _, ok := pending.Get("U123"); !ok {
		t.Error("expected pending thinking process after handling an idea")
	}

	unsent := bot.archive.UnsentResults()
	if len(unsent) != 0 {
		t.Errorf("expected result marked sent, %d unsent remain", len(unsent))
	}
}

func TestHandleIdeaSkipsImageWithoutHTTPS(t *testing.T) {
	messenger := &mockMessenger{}
	renderer := &mockRenderer{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{bundle: fullBundle(), outline: "アイデア\n"}, renderer, "http://localhost:3000")

	bot.HandleEvents(context.Background(), []line.Event{ideaEvent("アイデア")})

	if renderer.called != 0 {
		t.Errorf("render must be skipped for non-https public URL, called %d times", renderer.called)
	}
	for _, s := range messenger.sent {
		if s.kind == "image" {
			t.Error("no image should be pushed without an https public URL")
		}
	}
	if pushes := messenger.textsOf("push"); len(pushes) == 0 {
		t.Error("text delivery must still happen when images are skipped")
	}
}

func TestHandleIdeaRenderFailureIsAbsorbed(t *testing.T) {
	messenger := &mockMessenger{}
	renderer := &mockRenderer{err: errors.New("mmdc missing")}
	bot, _ := testBotService(t, messenger, &mockEnhancer{bundle: fullBundle(), outline: "アイデア\n"}, renderer, "https://bot.example.com")

	bot.HandleEvents(context.Background(), []line.Event{ideaEvent("アイデア")})

	for _, s := range messenger.sent {
		if s.kind == "image" {
			t.Error("no image should be pushed when rendering fails")
		}
	}
	if pushes := messenger.textsOf("push"); len(pushes) == 0 {
		t.Error("text delivery must survive a render failure")
	}
}

func TestHandleIdeaFaultPushesApology(t *testing.T) {
	messenger := &mockMessenger{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{panics: true}, &mockRenderer{}, "https://bot.example.com")

	bot.HandleEvents(context.Background(), []line.Event{ideaEvent("アイデア")})

	pushes := messenger.textsOf("push")
	if len(pushes) != 1 || pushes[0] != genericApology {
		t.Fatalf("expected a single generic apology push, got %v", pushes)
	}
}

func TestHandleDetailRequest(t *testing.T) {
	messenger := &mockMessenger{}
	bot, pending := testBotService(t, messenger, &mockEnhancer{}, &mockRenderer{}, "https://bot.example.com")
	pending.Put("U123", model.ThinkingProcess{
		Analysis:    "分析結果",
		Evaluation:  "評価結果",
		Expansion:   "拡張結果",
		Feasibility: "実現可能性結果",
	})

	bot.HandleEvents(context.Background(), []line.Event{ideaEvent(detailTrigger)})

	replies := messenger.textsOf("reply")
	if len(replies) != 1 || !strings.HasPrefix(replies[0], "【思考プロセス 1/2】") {
		t.Fatalf("expected part 1 as reply, got %v", replies)
	}
	if !strings.Contains(replies[0], "分析結果") || !strings.Contains(replies[0], "評価結果") {
		t.Errorf("part 1 must carry analysis and evaluation: %q", replies[0])
	}

	pushes := messenger.textsOf("push")
	if len(pushes) != 1 || !strings.HasPrefix(pushes[0], "【思考プロセス 2/2】") {
		t.Fatalf("expected part 2 as push, got %v", pushes)
	}
	if !strings.Contains(pushes[0], "拡張結果") || !strings.Contains(pushes[0], "実現可能性結果") {
		t.Errorf("part 2 must carry expansion and feasibility: %q", pushes[0])
	}
}

func TestHandleDetailRequestWithoutState(t *testing.T) {
	messenger := &mockMessenger{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{}, &mockRenderer{}, "https://bot.example.com")

	bot.HandleEvents(context.Background(), []line.Event{ideaEvent(detailTrigger)})

	replies := messenger.textsOf("reply")
	if len(replies) != 1 || replies[0] != noDetailNotice {
		t.Fatalf("expected no-detail notice, got %v", replies)
	}
	if pushes := messenger.textsOf("push"); len(pushes) != 0 {
		t.Errorf("no pushes expected without cached state, got %v", pushes)
	}
}

func TestHandleEventsIgnoresNonText(t *testing.T) {
	messenger := &mockMessenger{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{}, &mockRenderer{}, "https://bot.example.com")

	bot.HandleEvents(context.Background(), []line.Event{
		{Type: "follow", Source: line.Source{UserID: "U123"}},
		{Type: "message", Message: line.EventMessage{Type: "sticker"}},
	})

	if len(messenger.sent) != 0 {
		t.Errorf("non-text events must be ignored, got %v", messenger.sent)
	}
}

func TestRenderAndPush(t *testing.T) {
	messenger := &mockMessenger{}
	renderer := &mockRenderer{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{bundle: fullBundle(), outline: "アイデア\n"}, renderer, "https://bot.example.com")

	err := bot.RenderAndPush(context.Background(), "U123", "ルート\n  - 子\n", "result_manual")
	if err != nil {
		t.Fatalf("RenderAndPush() unexpected error: %v", err)
	}
	last := messenger.sent[len(messenger.sent)-1]
	if last.kind != "image" || last.url != "https://bot.example.com/temp/result_manual.png" {
		t.Errorf("unexpected final delivery %+v", last)
	}
}

func TestTranslateDialectSelection(t *testing.T) {
	messenger := &mockMessenger{}
	renderer := &mockRenderer{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{}, renderer, "https://bot.example.com")

	if err := bot.RenderAndPush(context.Background(), "U123", "ルート\n  - 子\n", "result_a"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(renderer.lastSource, "graph TD;") {
		t.Errorf("default dialect must be the flowchart form, got %q", renderer.lastSource)
	}

	bot.cfg.Mermaid.Dialect = "mindmap"
	if err := bot.RenderAndPush(context.Background(), "U123", "ルート\n  - 子\n", "result_b"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(renderer.lastSource, "mindmap\n") {
		t.Errorf("mindmap dialect must produce the nested form, got %q", renderer.lastSource)
	}
}

func TestRenderAndPushEmptyOutline(t *testing.T) {
	messenger := &mockMessenger{}
	bot, _ := testBotService(t, messenger, &mockEnhancer{}, &mockRenderer{}, "https://bot.example.com")

	if err := bot.RenderAndPush(context.Background(), "U123", "", "result_x"); err == nil {
		t.Fatal("expected error for empty outline")
	}
}
