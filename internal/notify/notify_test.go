package notify

import (
	"fmt"
	"testing"

	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func note(i int) execution.Notification {
	return execution.Notification{AttemptID: fmt.Sprintf("a-%d", i), Level: execution.LevelSuccess}
}

func TestFeed_RecentNewestFirst(t *testing.T) {
	f := NewFeed(3)
	assert.Empty(t, f.Recent(0))

	f.Notify(note(1))
	f.Notify(note(2))

	got := f.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, "a-2", got[0].AttemptID)
	assert.Equal(t, "a-1", got[1].AttemptID)
}

func TestFeed_Wraps(t *testing.T) {
	f := NewFeed(3)
	for i := 1; i <= 5; i++ {
		f.Notify(note(i))
	}

	got := f.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a-5", "a-4", "a-3"}, []string{got[0].AttemptID, got[1].AttemptID, got[2].AttemptID})

	got = f.Recent(1)
	require.Len(t, got, 1)
	assert.Equal(t, "a-5", got[0].AttemptID)
}

func TestFeed_DefaultSize(t *testing.T) {
	f := NewFeed(0)
	assert.Len(t, f.items, defaultFeedSize)
}

func TestFeed_Metrics(t *testing.T) {
	before := testutil.ToFloat64(NotificationsTotal.WithLabelValues("error"))

	f := NewFeed(2)
	f.Notify(execution.Notification{Level: execution.LevelError})

	assert.Equal(t, before+1, testutil.ToFloat64(NotificationsTotal.WithLabelValues("error")))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(execution.Notification{AttemptID: "a", Level: execution.LevelSuccess, Message: "Buy confirmed", TxURL: "https://x/tx/1"})
	n.Notify(execution.Notification{AttemptID: "b", Level: execution.LevelError, Message: "Sell failed"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "https://x/tx/1", entries[0].ContextMap()["tx-url"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "Sell failed", entries[1].ContextMap()["message"])
}

func TestMulti(t *testing.T) {
	a, b := NewFeed(2), NewFeed(2)
	Multi{a, b}.Notify(note(1))

	assert.Len(t, a.Recent(0), 1)
	assert.Len(t, b.Recent(0), 1)
}
