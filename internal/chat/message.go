package chat

import "fmt"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTemperature is used when a request does not carry one.
const DefaultTemperature = 0.7

// Temperature bounds accepted by every configured provider.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a full conversation plus sampling temperature. The last turn is
// the prompt; everything before it is history.
type Request struct {
	Turns       []Turn
	Temperature float64
}

// ValidationError reports a malformed client request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewRequest copies turns and validates the result. A nil temperature selects
// DefaultTemperature.
func NewRequest(turns []Turn, temperature *float64) (Request, error) {
	req := Request{
		Turns:       append([]Turn(nil), turns...),
		Temperature: DefaultTemperature,
	}
	if temperature != nil {
		req.Temperature = *temperature
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the request shape only.
func (r Request) Validate() error {
	if len(r.Turns) == 0 {
		return &ValidationError{Field: "messages", Message: "no messages provided"}
	}
	for i, t := range r.Turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", t.Role),
			}
		}
	}
	if r.Last().Role != RoleUser {
		return &ValidationError{Field: "messages", Message: "last message must be from user"}
	}
	if r.Temperature < MinTemperature || r.Temperature > MaxTemperature {
		return &ValidationError{
			Field:   "temperature",
			Message: fmt.Sprintf("must be between %g and %g", MinTemperature, MaxTemperature),
		}
	}
	return nil
}

// History returns every turn except the prompt.
func (r Request) History() []Turn {
	if len(r.Turns) == 0 {
		return nil
	}
	return r.Turns[:len(r.Turns)-1]
}

// Last returns the prompt turn. It panics on an empty request, which Validate
// rules out.
func (r Request) Last() Turn {
	return r.Turns[len(r.Turns)-1]
}
