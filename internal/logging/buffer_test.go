package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func entryAt(t time.Time, level, msg string) Entry {
	return Entry{Timestamp: t, Level: level, Message: msg}
}

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	b := NewBuffer(3)
	now := time.Now()

	for i, msg := range []string{"one", "two", "three", "four"} {
		b.Append(entryAt(now.Add(time.Duration(i)*time.Second), "INFO", msg))
	}

	require.Equal(t, 3, b.Len())
	all := b.All()
	require.Len(t, all, 3)
	require.Equal(t, "four", all[0].Message)
	require.Equal(t, "three", all[1].Message)
	require.Equal(t, "two", all[2].Message)
}

func TestBufferByLevel(t *testing.T) {
	b := NewBuffer(10)
	now := time.Now()

	b.Append(entryAt(now, "INFO", "fine"))
	b.Append(entryAt(now, "ERROR", "broken"))
	b.Append(entryAt(now, "ERROR", "still broken"))

	errs := b.ByLevel("error")
	require.Len(t, errs, 2)
	require.Equal(t, "still broken", errs[0].Message)
	require.Empty(t, b.ByLevel("WARN"))
}

func TestBufferSince(t *testing.T) {
	b := NewBuffer(10)
	now := time.Now()

	b.Append(entryAt(now.Add(-time.Hour), "INFO", "old"))
	b.Append(entryAt(now, "INFO", "fresh"))

	recent := b.Since(now.Add(-time.Minute))
	require.Len(t, recent, 1)
	require.Equal(t, "fresh", recent[0].Message)
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer(4)
	b.Append(entryAt(time.Now(), "INFO", "x"))
	require.Equal(t, 1, b.Len())

	b.Clear()
	require.Zero(t, b.Len())
	require.Empty(t, b.All())

	b.Append(entryAt(time.Now(), "INFO", "y"))
	require.Equal(t, 1, b.Len())
}

func TestBufferedLoggerCapturesRecords(t *testing.T) {
	buf := NewBuffer(10)
	logger := NewBuffered("debug", buf)

	logger.Info("order created")
	logger.Error("kafka write failed")

	require.Equal(t, 2, buf.Len())
	require.Len(t, buf.ByLevel("ERROR"), 1)
	require.Equal(t, "kafka write failed", buf.ByLevel("ERROR")[0].Message)
}

func TestBufferedLoggerRespectsLevel(t *testing.T) {
	buf := NewBuffer(10)
	logger := NewBuffered("warn", buf)

	logger.Info("dropped")
	logger.Warn("kept")

	require.Equal(t, 1, buf.Len())
	require.Equal(t, "kept", buf.All()[0].Message)
}
