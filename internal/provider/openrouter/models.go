package openrouter

import (
	"fmt"
	"strconv"
)

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string    `json:"id,omitempty"`
	Model   string    `json:"model,omitempty"`
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message      *message `json:"message,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

// apiError is the error object OpenRouter can embed in an otherwise 200 response.
type apiError struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message"`
}

// status returns the numeric code, 0 when it is absent or not numeric.
func (e *apiError) status() int {
	switch v := e.Code.(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func (e *apiError) String() string {
	if e.Message == "" {
		return fmt.Sprintf("error code %v", e.Code)
	}
	return e.Message
}
