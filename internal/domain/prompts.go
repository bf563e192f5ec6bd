package domain

import "fmt"

// interviewerPrompt is the fixed persona for the interviewer. The coach
// targets Japanese high-school students, so all prompt text is Japanese.
const interviewerPrompt = "あなたは『高校生向けの模擬面接官』です。目的は、進学または就職の面接練習を現実に近い形で行うことです。\n" +
	"・口調は丁寧で公平、やや厳しめ。・一度に1〜2問だけ。・解説は控えめで総評は終了時。\n" +
	"・特殊な記号、絵文字、全角スペースは絶対に出力しない。・日本語の標準語、敬語。\n" +
	"・ユーザー情報(進学/就職, 志望分野, 志望先)を踏まえて質問する。"

// SummaryInstruction asks the model for an end-of-session debrief. It is
// appended to a copy of the log, never committed to the session itself.
const SummaryInstruction = "上記は模擬面接のログです。以下を日本語で簡潔にまとめてください：\n" +
	"- 良かった点\n- 改善点\n- 次回までの宿題（志望動機・自己PRの改善例を3-5文）\n"

// FallbackSummary is substituted when summary generation fails. Callers
// never see an error for that path.
const FallbackSummary = "（サマリー生成に失敗しました。テキストログを参考に振り返ってください）"

// SystemPrompt builds the system message for a new session: the fixed
// interviewer persona plus the candidate's declared context.
func SystemPrompt(track Track, field, target string) string {
	return interviewerPrompt + fmt.Sprintf(
		"\nユーザー情報: track=%s, 分野=%s, 志望先=%s。これに即した質問から開始してください。",
		track, field, target)
}

// OpeningQuestion builds the interviewer's first message. The academic track
// asks for the reason for applying, the employment track for a short
// self-introduction and motivation.
func OpeningQuestion(track Track, field, target string) string {
	if track == TrackAcademic {
		return fmt.Sprintf("面接練習を始めます。%s（%s）を志望とのことですね。まず志望理由を簡潔に教えてください。", target, field)
	}
	return fmt.Sprintf("面接練習を始めます。%s（%s）を志望とのことですね。まず自己紹介と志望動機を1分程度でお願いします。", target, field)
}
