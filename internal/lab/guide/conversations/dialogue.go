package conversations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

// ErrGuideBusy is returned when a question is submitted while the previous
// one is still being answered.
var ErrGuideBusy = errors.New("guide is still answering the previous question")

const defaultWindow = 4

// Dialogue is the append-only conversation of one lab session plus the
// in-flight flag. It is not safe for concurrent use; the session event loop
// owns it.
type Dialogue struct {
	messages []*schema.Message
	typing   bool
	window   int
}

// Greeting is the first assistant message of every session.
func Greeting(student, title string) string {
	return fmt.Sprintf("Habari Scientist %s! I'm your VirtuLab Assistant. We are starting %q.", student, title)
}

// NewDialogue starts a conversation with the greeting as its first message.
// window bounds the history handed to the remote prompt.
func NewDialogue(greeting string, window int) *Dialogue {
	if window <= 0 {
		window = defaultWindow
	}
	return &Dialogue{
		messages: []*schema.Message{schema.AssistantMessage(greeting, nil)},
		window:   window,
	}
}

// Submit appends the question as a user message and marks the guide as
// typing. It returns the appended message and the recent window that
// preceded it.
func (d *Dialogue) Submit(question string) (*schema.Message, []*schema.Message, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, nil, errx.New(errx.InvalidCommand, nil, "question is empty")
	}
	if d.typing {
		return nil, nil, ErrGuideBusy
	}
	history := recentWindow(d.messages, d.window)
	msg := schema.UserMessage(q)
	d.messages = append(d.messages, msg)
	d.typing = true
	return msg, history, nil
}

// Complete appends the assistant reply and clears the typing flag. A reply
// that arrives when nothing is in flight is dropped and nil is returned.
func (d *Dialogue) Complete(reply string) *schema.Message {
	if !d.typing {
		return nil
	}
	msg := schema.AssistantMessage(reply, nil)
	d.messages = append(d.messages, msg)
	d.typing = false
	return msg
}

// Abandon clears the typing flag without appending a reply.
func (d *Dialogue) Abandon() {
	d.typing = false
}

func (d *Dialogue) Typing() bool { return d.typing }
func (d *Dialogue) Len() int     { return len(d.messages) }

// Messages returns a copy of the conversation.
func (d *Dialogue) Messages() []*schema.Message {
	out := make([]*schema.Message, len(d.messages))
	for i, m := range d.messages {
		cp := *m
		out[i] = &cp
	}
	return out
}

// FormatHistory renders messages as a compact transcript for the prompt.
func FormatHistory(messages []*schema.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("Student: " + msg.Content + "\n")
		case schema.Assistant:
			b.WriteString("Assistant: " + msg.Content + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func recentWindow(messages []*schema.Message, n int) []*schema.Message {
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	result := make([]*schema.Message, len(messages))
	copy(result, messages)
	return result
}
