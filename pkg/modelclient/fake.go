package modelclient

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rollbackagent/engine/pkg/model"
)

// Call records one invocation of Fake.Run, for test assertions.
type Call struct {
	SessionID string
	Message   string
	History   []model.Turn
	Tools     []ToolDescriptor
}

// Fake is a deterministic, scripted Client test double. Responses are
// looked up by exact message text first; failing that, Fake falls back to
// a small amount of built-in behavior (recalling a name introduced
// earlier in the conversation) so history re-injection tests (spec.md
// S5) can assert on realistic-looking answers without a real provider.
type Fake struct {
	mu      sync.Mutex
	scripts map[string]Response
	calls   []Call
}

func NewFake() *Fake {
	return &Fake{scripts: make(map[string]Response)}
}

// Script registers the exact response Run should return when called with
// the given message text.
func (f *Fake) Script(message string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[message] = resp
}

// Calls returns every recorded Run invocation, in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

var nameIntroPattern = regexp.MustCompile(`(?i)\bI(?:'m| am) ([A-Z][a-zA-Z]*)`)

func (f *Fake) Run(ctx context.Context, sessionID string, message string, history []model.Turn, tools []ToolDescriptor) (Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{SessionID: sessionID, Message: message, History: history, Tools: tools})
	scripted, ok := f.scripts[message]
	f.mu.Unlock()

	if ok {
		return scripted, nil
	}

	if strings.Contains(strings.ToLower(message), "what is my name") {
		if name := recallName(history); name != "" {
			return Response{Text: fmt.Sprintf("Your name is %s.", name)}, nil
		}
		return Response{Text: "I don't know your name yet."}, nil
	}

	return Response{Text: "Acknowledged: " + message}, nil
}

// recallName scans history newest-first for an "I'm <Name>" / "I am
// <Name>" introduction.
func recallName(history []model.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != model.RoleUser {
			continue
		}
		if m := nameIntroPattern.FindStringSubmatch(history[i].Content); m != nil {
			return m[1]
		}
	}
	return ""
}
