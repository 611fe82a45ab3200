package reembed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)
	tracker.Start()

	// Below interval, no output
	tracker.Update(5)
	assert.Empty(t, buf.String())

	// Crossing the interval reports
	tracker.Update(15)
	assert.Contains(t, buf.String(), "15/100")
}

func TestProgressTracker_Increment(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 50, 10)
	tracker.Start()

	tracker.Increment(6)
	assert.Empty(t, buf.String())

	tracker.Increment(6)
	assert.Contains(t, buf.String(), "12/50")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)
	tracker.Start()

	tracker.Update(25)
	assert.Contains(t, buf.String(), "10/10")
	assert.Contains(t, buf.String(), "100.0%")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 7, 100)
	tracker.Start()

	tracker.Update(3)
	tracker.Finish()

	out := buf.String()
	assert.Contains(t, out, "7/7")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressTracker_IgnoredBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Update(5)
	tracker.Increment(5)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}
