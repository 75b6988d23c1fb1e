package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// syncBuffer keeps -race happy when a test logs from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func capture(t *testing.T) *syncBuffer {
	t.Helper()
	out := &syncBuffer{}
	SetOutput(out)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel("info")
	})
	return out
}

func TestLevelFiltering(t *testing.T) {
	out := capture(t)

	SetLevel("warn")
	Debugf("noise %d", 1)
	Infof("noise %d", 2)
	Warnf("kept %d", 3)
	Errorf("kept %d", 4)

	got := out.String()
	assert.NotContains(t, got, "noise")
	assert.Contains(t, got, "kept 3")
	assert.Contains(t, got, "kept 4")
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	out := capture(t)

	SetLevel("loud")
	Debugf("hidden")
	Infof("shown")

	got := out.String()
	assert.NotContains(t, got, "hidden")
	assert.Contains(t, got, "shown")
}

func TestInfoBlockOneRecordPerLine(t *testing.T) {
	out := capture(t)

	InfoBlock("header\nrow one\n\nrow two  \n")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "header")
	assert.Contains(t, lines[2], "row two")
}
