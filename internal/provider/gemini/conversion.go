package gemini

import (
	"strings"

	"github.com/ai-gateway/chatrelay/internal/chat"
)

const (
	topP            = 0.95
	topK            = 40
	maxOutputTokens = 8192
)

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// buildRequest maps history then prompt into Gemini contents.
// Role mapping: user -> user, assistant -> model.
func buildRequest(turns []chat.Turn, temperature float64) generateContentRequest {
	contents := make([]content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == chat.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: t.Content}}})
	}

	tp, tk, maxTokens := topP, topK, maxOutputTokens
	safety := make([]safetySetting, 0, len(safetyCategories))
	for _, c := range safetyCategories {
		safety = append(safety, safetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return generateContentRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature:     &temperature,
			TopP:            &tp,
			TopK:            &tk,
			MaxOutputTokens: &maxTokens,
		},
		SafetySettings: safety,
	}
}

// replyText joins the text parts of the first candidate.
func replyText(resp generateContentResponse) (string, string) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return "", "response has no candidates"
	}
	c := resp.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		if c.FinishReason != "" {
			return "", "candidate has no content (finish reason " + c.FinishReason + ")"
		}
		return "", "candidate has no content"
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", "candidate has no text"
	}
	return b.String(), ""
}
