// Package notify delivers transient user-facing messages about completed or
// failed operations.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/utafrali/critiqo/pkg/logger"
)

// Notifier receives one message per finished operation.
type Notifier interface {
	Success(ctx context.Context, message string)
	Failure(ctx context.Context, message string, err error)
}

// Log writes notifications as structured log lines.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Notifier backed by l.
func NewLog(l *slog.Logger) *Log {
	return &Log{logger: l}
}

func (n *Log) Success(ctx context.Context, message string) {
	logger.WithContext(ctx, n.logger).InfoContext(ctx, message, slog.String("notification", "success"))
}

func (n *Log) Failure(ctx context.Context, message string, err error) {
	attrs := []any{slog.String("notification", "failure")}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.WithContext(ctx, n.logger).WarnContext(ctx, message, attrs...)
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Terminal prints notifications as short coloured lines, like a toast.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewTerminal writes to w. When verbose is set, failures include the error.
func NewTerminal(w io.Writer, verbose bool) *Terminal {
	return &Terminal{w: w, verbose: verbose}
}

func (n *Terminal) Success(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s %s\n", successStyle.Render("✓"), message)
}

func (n *Terminal) Failure(_ context.Context, message string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.verbose && err != nil {
		fmt.Fprintf(n.w, "%s %s: %v\n", failureStyle.Render("✗"), message, err)
		return
	}
	fmt.Fprintf(n.w, "%s %s\n", failureStyle.Render("✗"), message)
}

// Message is one recorded notification.
type Message struct {
	Success bool
	Text    string
	Err     error
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Success(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Success: true, Text: message})
}

func (r *Recorder) Failure(_ context.Context, message string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Text: message, Err: err})
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Success(ctx context.Context, message string) {
	for _, n := range m {
		n.Success(ctx, message)
	}
}

func (m Multi) Failure(ctx context.Context, message string, err error) {
	for _, n := range m {
		n.Failure(ctx, message, err)
	}
}
