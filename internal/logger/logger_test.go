package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(verbose bool) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := New(verbose, WithOutput(&out), WithErrorOutput(&errOut), WithTerminalWidth(40), WithColor(false))
	return l, &out, &errOut
}

func TestDebugOnlyWhenVerbose(t *testing.T) {
	quiet, out, _ := newTestLogger(false)
	quiet.Debug("hidden %d", 1)
	quiet.Trace("hidden")
	quiet.FileChange("a.md")
	assert.Empty(t, out.String())

	loud, out, _ := newTestLogger(true)
	loud.Debug("shown %d", 1)
	assert.Equal(t, "shown 1\n", out.String())
}

func TestReportLines(t *testing.T) {
	l, out, _ := newTestLogger(false)
	l.Moved("topic.md", "topic/index.md")
	l.Updated("guide.md")
	l.Summary(1, 1)

	assert.Equal(t,
		"  - Moved topic.md -> topic/index.md\n"+
			"  - Updated references in guide.md\n"+
			"Structure fix complete: 1 files moved, 1 files updated\n",
		out.String())
}

func TestErrorsGoToErrorOutput(t *testing.T) {
	l, out, errOut := newTestLogger(false)
	l.Error("boom: %v", errors.New("disk"))
	l.WatchError(errors.New("overflow"))
	l.BrokenLink("guide.md", 3, "missing.md", "target not found")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "boom: disk")
	assert.Contains(t, errOut.String(), "Watcher error: overflow")
	assert.Contains(t, errOut.String(), "guide.md:3: missing.md")
	assert.Contains(t, errOut.String(), "    target not found")
}

func TestColoredOutputIsDecorated(t *testing.T) {
	var out bytes.Buffer
	l := New(false, WithOutput(&out), WithTerminalWidth(30))
	l.Success("done")
	assert.Contains(t, out.String(), colorGreen)
	assert.Contains(t, out.String(), "✅ done")

	out.Reset()
	l.StartSection("Results")
	assert.Contains(t, out.String(), "🚀 Results ")
}
