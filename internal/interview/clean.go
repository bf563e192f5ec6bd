package interview

import "strings"

// speechCleaner removes characters known to disrupt Open JTalk: markdown
// asterisks, full-width exclamation and question marks, and newlines.
var speechCleaner = strings.NewReplacer(
	"*", "",
	"！", "",
	"？", "",
	"\n", "",
)

// CleanForSpeech prepares reply text for the synthesis engine. The engine
// itself receives the text as-is; cleaning is the pipeline's job.
func CleanForSpeech(text string) string {
	return speechCleaner.Replace(text)
}
