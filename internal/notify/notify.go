// Package notify delivers attempt outcomes to the log and to a bounded
// in-memory feed read by the HTTP API.
package notify

import (
	"sync"

	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"go.uber.org/zap"
)

const defaultFeedSize = 50

// LogNotifier writes notifications as structured log entries.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs through logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n at info for success and warn for errors.
func (l *LogNotifier) Notify(n execution.Notification) {
	fields := []zap.Field{
		zap.String("attempt-id", n.AttemptID),
		zap.String("kind", n.Kind),
		zap.String("message", n.Message),
	}
	if n.TxURL != "" {
		fields = append(fields, zap.String("tx-url", n.TxURL))
	}

	if n.Level == execution.LevelSuccess {
		l.logger.Info("notification", fields...)
		return
	}
	l.logger.Warn("notification", fields...)
}

// Feed keeps the most recent notifications in a ring buffer.
type Feed struct {
	mu    sync.RWMutex
	items []execution.Notification
	next  int
	full  bool
}

// NewFeed creates a feed holding up to size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = defaultFeedSize
	}
	return &Feed{items: make([]execution.Notification, size)}
}

// Notify appends n, overwriting the oldest entry when full.
func (f *Feed) Notify(n execution.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
	NotificationsTotal.WithLabelValues(string(n.Level)).Inc()
}

// Recent returns up to n notifications, newest first. n <= 0 returns all.
func (f *Feed) Recent(n int) []execution.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.next
	if f.full {
		count = len(f.items)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]execution.Notification, 0, n)
	for i := 1; i <= n; i++ {
		idx := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// Multi fans a notification out to every notifier in order.
type Multi []execution.Notifier

// Notify forwards n to each notifier.
func (m Multi) Notify(n execution.Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
