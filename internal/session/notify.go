package session

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Notifier surfaces a message to the user.
type Notifier interface {
	Notify(msg string)
}

// LogNotifier logs each message and, when W is set, prints it there.
type LogNotifier struct {
	W io.Writer
}

func (n LogNotifier) Notify(msg string) {
	zap.L().Warn("session: notice", zap.String("message", msg))
	if n.W != nil {
		_, _ = fmt.Fprintln(n.W, msg)
	}
}

// Flash keeps the latest message until the next page render takes it.
type Flash struct {
	mu  sync.Mutex
	msg string
}

func (f *Flash) Notify(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msg = msg
}

// Take returns the pending message and clears it.
func (f *Flash) Take() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.msg
	f.msg = ""
	return msg
}
