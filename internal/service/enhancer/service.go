// Package enhancer runs the multi-step thinking process that turns a raw
// idea into an enhanced version plus a text mindmap outline.
package enhancer

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/internal/model"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/llm"
)

// Generator is the gateway the pipeline generates text through.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// placeholders for a pipeline-level fault (not an ordinary gateway failure)
const (
	stepErrorPlaceholder  = "エラーが発生しました"
	finalErrorPlaceholder = "アイデアの処理中にエラーが発生しました。しばらくしてからもう一度お試しください。エラー: %v"
	bundleErrorFormat     = "アイデアの処理中にエラーが発生しました。エラー: %v"
)

type Service struct {
	generator Generator
}

func New(generator Generator) *Service {
	return &Service{generator: generator}
}

// Enhance runs the five-step chain. Every bundle field is populated even
// when individual steps fail: gateway failures become in-band placeholder
// text and the chain continues with that text as context. The returned
// bundle is never nil and never partially absent.
func (s *Service) Enhance(ctx context.Context, idea string) (bundle *model.EnhancementBundle) {
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("enhancement pipeline fault: %v", r)
			bundle = faultBundle(fmt.Errorf("%v", r))
		}
	}()

	bundle = &model.EnhancementBundle{}

	klog.V(6).Infof("step 1: analyzing idea")
	bundle.Analysis = s.step(ctx, bundle, analysisSystemPrompt, analysisUserPrompt(idea), 200)

	klog.V(6).Infof("step 2: evaluating strengths and weaknesses")
	bundle.Evaluation = s.step(ctx, bundle, evaluationSystemPrompt, evaluationUserPrompt(idea, bundle.Analysis), 200)

	klog.V(6).Infof("step 3: expanding the idea")
	bundle.Expansion = s.step(ctx, bundle, expansionSystemPrompt, expansionUserPrompt(idea, bundle.Analysis, bundle.Evaluation), 200)

	klog.V(6).Infof("step 4: assessing feasibility")
	bundle.Feasibility = s.step(ctx, bundle, feasibilitySystemPrompt, feasibilityUserPrompt(idea, bundle.Expansion), 200)

	klog.V(6).Infof("step 5: creating final enhancement")
	bundle.FinalEnhancement = s.step(ctx, bundle, finalSystemPrompt, finalUserPrompt(idea, bundle), 500)

	return bundle
}

// step issues one gateway call and folds failure into placeholder text so
// the next step always has a string to build on.
func (s *Service) step(ctx context.Context, bundle *model.EnhancementBundle, system, user string, maxTokens int64) string {
	result := s.generator.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
	if !result.OK() && bundle.Error == "" {
		bundle.Error = result.Err.Error()
	}
	return result.TextOrPlaceholder()
}

// GenerateOutline produces the indented text mindmap. With a non-nil bundle
// the prompt includes all five fields as context; the size limits are prompt
// instructions only and violations are tolerated downstream.
func (s *Service) GenerateOutline(ctx context.Context, idea string, bundle *model.EnhancementBundle) string {
	user := mindmapUserPrompt(idea)
	if bundle != nil {
		user = mindmapUserPromptWithBundle(idea, bundle)
	}
	result := s.generator.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: mindmapSystemPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens: 800,
	})
	return result.TextOrPlaceholder()
}

func faultBundle(err error) *model.EnhancementBundle {
	return &model.EnhancementBundle{
		Analysis:         stepErrorPlaceholder,
		Evaluation:       stepErrorPlaceholder,
		Expansion:        stepErrorPlaceholder,
		Feasibility:      stepErrorPlaceholder,
		FinalEnhancement: fmt.Sprintf(finalErrorPlaceholder, err),
		Error:            fmt.Sprintf(bundleErrorFormat, err),
	}
}
