package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Kind is a rough category of a failed request.
type Kind int

const (
	KindGeneric Kind = iota
	KindTimeout
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	default:
		return "generic"
	}
}

// Failure is what the user is told about a failed request.
type Failure struct {
	Kind    Kind
	Message string
}

var (
	timeoutHints = []string{"timeout", "timed out", "deadline exceeded"}
	authHints    = []string{"401", "403", "unauthorized", "forbidden", "api key", "authentication"}
)

// Classify turns an error from Complete into a user-facing message. It
// is a best guess based on the error text; status codes are used when the
// backend returned one.
func Classify(err error) Failure {
	if err == nil {
		return Failure{}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutFailure()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return authFailure()
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return timeoutFailure()
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, timeoutHints):
		return timeoutFailure()
	case containsAny(msg, authHints):
		return authFailure()
	}
	return Failure{Kind: KindGeneric, Message: "The AI request failed: " + err.Error()}
}

func timeoutFailure() Failure {
	return Failure{Kind: KindTimeout, Message: "The AI request timed out. Try again or shorten the prompt."}
}

func authFailure() Failure {
	return Failure{Kind: KindAuth, Message: "The AI backend rejected the API key. Check PATCHSPACE_API_KEY."}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
