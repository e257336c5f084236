package enhancer

import (
	"fmt"

	"github.com/masapokki/line-night-idea-enhancer/internal/model"
)

// System prompts for the five pipeline steps. Each step consumes the
// outputs of the steps before it, so the chain cannot be parallelized.
const (
	analysisSystemPrompt    = "あなたはアイデアを分析するエキスパートです。提案されたアイデアの本質、目的、対象ユーザー、解決する問題を簡潔に分析してください。"
	evaluationSystemPrompt  = "あなたはアイデアの評価を行うエキスパートです。アイデアの強みと改善が必要な点を簡潔に特定してください。"
	expansionSystemPrompt   = "あなたは創造的なアイデアを発展させるエキスパートです。アイデアをより具体的で実用的な形に拡張してください。"
	feasibilitySystemPrompt = "あなたは実現可能性を評価するエキスパートです。アイデアの技術的・経済的な実現可能性を簡潔に検討してください。"
	finalSystemPrompt       = "あなたは創造的なアイデアを最終的にブラッシュアップするエキスパートです。これまでの分析と評価を統合して、最終的なブラッシュアップ案を作成してください。ユーザーが理解しやすいように、簡潔にまとめてください。"

	mindmapSystemPrompt = "あなたはアイデアからテキスト形式のマインドマップを作成するアシスタントです。中心となるアイデアから派生する概念を階層的に表現してください。簡潔に作成してください。"
)

func analysisUserPrompt(idea string) string {
	return fmt.Sprintf("以下のアイデアを分析してください：\n\n%s", idea)
}

func evaluationUserPrompt(idea, analysis string) string {
	return fmt.Sprintf("以下のアイデアの強みと弱みを評価してください：\n\n%s\n\n分析結果：\n%s", idea, analysis)
}

func expansionUserPrompt(idea, analysis, evaluation string) string {
	return fmt.Sprintf("以下のアイデアを拡張・発展させてください：\n\n%s\n\n分析結果：\n%s\n\n評価：\n%s", idea, analysis, evaluation)
}

func feasibilityUserPrompt(idea, expansion string) string {
	return fmt.Sprintf("以下のアイデアの実現可能性を評価してください：\n\n%s\n\n拡張案：\n%s", idea, expansion)
}

func finalUserPrompt(idea string, b *model.EnhancementBundle) string {
	return fmt.Sprintf("以下のアイデアの最終ブラッシュアップ案を作成してください：\n\n元のアイデア：\n%s\n\n分析：\n%s\n\n評価：\n%s\n\n拡張案：\n%s\n\n実現可能性：\n%s",
		idea, b.Analysis, b.Evaluation, b.Expansion, b.Feasibility)
}

// mindmapSizeGovernor keeps the outline small enough to render legibly.
// It is a prompt instruction only; the parser tolerates violations.
const mindmapSizeGovernor = "階層は最大3レベルまで、各レベルの項目は3〜5個、各項目のラベルは5語程度、全体で15項目程度に収めてください。"

func mindmapUserPrompt(idea string) string {
	return fmt.Sprintf("以下のアイデアからテキスト形式のマインドマップを作成してください。階層はインデントで表現し、各項目の前には記号（例：*、-、+など）を付けてください。%s\n\n%s",
		mindmapSizeGovernor, idea)
}

func mindmapUserPromptWithBundle(idea string, b *model.EnhancementBundle) string {
	return fmt.Sprintf("以下のアイデアとそのブラッシュアップ結果からテキスト形式のマインドマップを作成してください。階層はインデントで表現し、各項目の前には記号（例：*、-、+など）を付けてください。%s\n\n元のアイデア：\n%s\n\n分析：\n%s\n\n評価：\n%s\n\n拡張案：\n%s\n\n実現可能性：\n%s\n\n最終ブラッシュアップ：\n%s",
		mindmapSizeGovernor, idea, b.Analysis, b.Evaluation, b.Expansion, b.Feasibility, b.FinalEnhancement)
}
