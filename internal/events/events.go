// Package events implements the line protocol the supervising UI consumes.
//
// State changes go to stdout as __event__:<category>:<action>, informational
// status as __info__:<category>:<action>, and recoverable failures to stderr
// as __error__:<category>:<message>. One line per message, nothing else on
// those streams.
package events

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

type Kind string

const (
	KindEvent Kind = "__event__"
	KindInfo  Kind = "__info__"
	KindError Kind = "__error__"
)

// Message is one protocol line. Category and Action are single protocol
// tokens; Action doubles as the message text for errors.
type Message struct {
	Kind     Kind
	Category string
	Action   string
}

// Line renders the message in wire format, without a trailing newline.
// Newlines inside fields are flattened so a message can never span lines.
func (m Message) Line() string {
	action := strings.ReplaceAll(m.Action, "\n", " ")
	return fmt.Sprintf("%s:%s:%s", m.Kind, m.Category, action)
}

// Reporter is the capability handed to components that need to signal the
// supervisor. Implementations must be safe for concurrent use; the monitor
// loop and the heartbeat loop both emit.
type Reporter interface {
	Event(category, action string)
	Info(category, action string)
	Error(category, message string)
}

// Writer emits protocol lines to a stdout/stderr pair.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

func NewWriter(out, errOut io.Writer) *Writer {
	return &Writer{out: out, err: errOut}
}

func (w *Writer) Event(category, action string) {
	w.write(w.out, Message{Kind: KindEvent, Category: category, Action: action})
}

func (w *Writer) Info(category, action string) {
	w.write(w.out, Message{Kind: KindInfo, Category: category, Action: action})
}

func (w *Writer) Error(category, message string) {
	w.write(w.err, Message{Kind: KindError, Category: category, Action: message})
}

func (w *Writer) write(dst io.Writer, m Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(dst, m.Line())
}
