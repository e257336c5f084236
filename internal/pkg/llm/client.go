// Package llm wraps the OpenAI chat completions API behind a gateway that
// reports failure as a tagged result instead of raising, so callers can
// decide whether to substitute user-facing placeholder text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/config"
)

const defaultTimeout = 30 * time.Second

// in-band failure texts shown to the user in place of generated content
const (
	timeoutMessage = "処理がタイムアウトしました。より短いメッセージで再試行してください。"
	errorFormat    = "APIエラーが発生しました: %v"
)

type Message struct {
	Role    string // system, user, assistant
	Content string
}

type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int64         // 0 uses the provider default
	Timeout     time.Duration // 0 uses the gateway default
}

type Kind int

const (
	KindOK Kind = iota
	KindTimeout
	KindFailed
)

// Result is the gateway's tagged outcome. Failure is a value, not an error:
// downstream pipeline steps always receive usable text via
// TextOrPlaceholder and never need nil handling.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

func (r Result) OK() bool {
	return r.Kind == KindOK
}

// TextOrPlaceholder returns the generated text, or the fixed in-band
// placeholder for the failure kind. Never empty.
func (r Result) TextOrPlaceholder() string {
	switch r.Kind {
	case KindTimeout:
		return timeoutMessage
	case KindFailed:
		return fmt.Sprintf(errorFormat, r.Err)
	default:
		return r.Text
	}
}

type Client struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	api         openai.Client
}

func NewClient(cfg *config.Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.LLM.APIKey),
		// failures become placeholders; nothing is retried anywhere
		option.WithMaxRetries(0),
	}
	if cfg.LLM.APIURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.LLM.APIURL))
	}
	timeout := cfg.LLM.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     timeout,
		api:         openai.NewClient(opts...),
	}
}

// Generate runs one chat completion raced against the request timeout and
// returns a tagged result. It never panics and never returns an error out
// of band.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.Model),
		Messages:    toParams(req.Messages),
		Temperature: openai.Float(temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	klog.V(6).Infof("chat completion request: model=%s, messages=%d", c.Model, len(req.Messages))
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			klog.Errorf("chat completion timed out after %s", timeout)
			return Result{Kind: KindTimeout, Err: err}
		}
		klog.Errorf("chat completion failed: %v", err)
		return Result{Kind: KindFailed, Err: err}
	}
	if len(resp.Choices) == 0 {
		err := errors.New("no response from model")
		klog.Errorf("chat completion failed: %v", err)
		return Result{Kind: KindFailed, Err: err}
	}

	return Result{Kind: KindOK, Text: strings.TrimSpace(resp.Choices[0].Message.Content)}
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
