package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"unsafe"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// winsize represents terminal window size
type winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

// Logger provides structured logging with verbosity control
type Logger struct {
	out       io.Writer
	errOut    io.Writer
	verbose   bool
	color     bool
	termWidth int
}

// Option configures a Logger
type Option func(*Logger)

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
	}
}

// WithErrorOutput sets the error output writer
func WithErrorOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.errOut = w
	}
}

// WithTerminalWidth sets a custom terminal width
func WithTerminalWidth(width int) Option {
	return func(l *Logger) {
		l.termWidth = width
	}
}

// WithColor toggles ANSI colors and emoji
func WithColor(enabled bool) Option {
	return func(l *Logger) {
		l.color = enabled
	}
}

// getTerminalWidth detects the current terminal width
func getTerminalWidth() int {
	ws := &winsize{}
	retCode, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		uintptr(syscall.Stdout),
		uintptr(syscall.TIOCGWINSZ),
		uintptr(unsafe.Pointer(ws)))

	if int(retCode) == -1 {
		// Fall back to a reasonable default if detection fails
		return 80
	}

	if errno != 0 || ws.Col == 0 {
		return 80
	}

	return int(ws.Col)
}

// New creates a new logger instance
func New(verbose bool, opts ...Option) *Logger {
	l := &Logger{
		out:       os.Stdout,
		errOut:    os.Stderr,
		verbose:   verbose,
		color:     true,
		termWidth: getTerminalWidth(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Discard returns a logger that writes nowhere. Handy as a default for
// library callers that pass no logger.
func Discard() *Logger {
	return New(false, WithOutput(io.Discard), WithErrorOutput(io.Discard), WithTerminalWidth(80))
}

// Info logs an informational message (always shown)
func (l *Logger) Info(msg string, args ...any) {
	l.log(l.out, "ℹ️", colorCyan, msg, args...)
}

// Success logs a success message (always shown)
func (l *Logger) Success(msg string, args ...any) {
	l.log(l.out, "✅", colorGreen, msg, args...)
}

// Warn logs a warning message (always shown)
func (l *Logger) Warn(msg string, args ...any) {
	l.log(l.out, "⚠️", colorYellow, msg, args...)
}

// Error logs an error message (always shown)
func (l *Logger) Error(msg string, args ...any) {
	l.log(l.errOut, "❌", colorRed, msg, args...)
}

// Debug logs a debug message (only in verbose mode)
func (l *Logger) Debug(msg string, args ...any) {
	if l.verbose {
		l.log(l.out, "🐛", colorGray, msg, args...)
	}
}

// Trace logs a trace message (only in verbose mode)
func (l *Logger) Trace(msg string, args ...any) {
	if l.verbose {
		l.log(l.out, "🔍", colorDim, msg, args...)
	}
}

// Plain writes an undecorated line. Used for the report lists, which are
// meant to be copied around.
func (l *Logger) Plain(msg string, args ...any) {
	fmt.Fprintf(l.out, msg+"\n", args...)
}

// StartSection prints a section header
func (l *Logger) StartSection(title string) {
	if !l.color {
		fmt.Fprintf(l.out, "\n%s\n%s\n", title, strings.Repeat("-", max(len(title), 50)))
		return
	}
	headerText := "🚀 " + title + " "
	remainingWidth := max(0, l.termWidth-len(headerText)-2)
	padding := strings.Repeat("=", remainingWidth)
	fmt.Fprintf(l.out, "\n%s%s%s%s\n", colorBold+colorBlue, headerText, padding, colorReset)
}

// Config logs configuration information
func (l *Logger) Config(dir string, dryRun, gitAware, watch bool, concurrency int) {
	if !l.verbose {
		return
	}

	l.log(l.out, "🔧", colorBlue, "Configuration")
	fmt.Fprintf(l.out, "  %sDirectory:%s %s\n", l.paint(colorCyan), l.paint(colorReset), dir)
	fmt.Fprintf(l.out, "  %sDry run:%s %t\n", l.paint(colorCyan), l.paint(colorReset), dryRun)
	fmt.Fprintf(l.out, "  %sGit aware:%s %t\n", l.paint(colorCyan), l.paint(colorReset), gitAware)
	fmt.Fprintf(l.out, "  %sWatch:%s %t\n", l.paint(colorCyan), l.paint(colorReset), watch)
	fmt.Fprintf(l.out, "  %sConcurrency:%s %d\n", l.paint(colorCyan), l.paint(colorReset), concurrency)
}

// Moved logs one relocation, paths relative to the content root
func (l *Logger) Moved(src, dst string) {
	l.Plain("  - Moved %s -> %s", src, dst)
}

// Updated logs a document whose references were rewritten
func (l *Logger) Updated(path string) {
	l.Plain("  - Updated references in %s", path)
}

// BrokenLink logs a link that does not resolve
func (l *Logger) BrokenLink(file string, line int, link, reason string) {
	l.log(l.errOut, "💀", colorRed, "%s:%d: %s", file, line, link)
	if reason != "" {
		fmt.Fprintf(l.errOut, "    %s\n", reason)
	}
}

// Summary prints the final one-line counts
func (l *Logger) Summary(moved, updated int) {
	l.Plain("Structure fix complete: %d files moved, %d files updated", moved, updated)
}

// Watch logs watch mode status
func (l *Logger) Watch(dir string) {
	l.log(l.out, "👀", colorBlue, "Watching %s for changes...", dir)
}

// FileChange logs file change events (only in verbose mode)
func (l *Logger) FileChange(path string) {
	if l.verbose {
		l.log(l.out, "📝", colorYellow, "File changed: %s", path)
	}
}

// WatchError logs watcher errors
func (l *Logger) WatchError(err error) {
	l.log(l.errOut, "❌", colorRed, "Watcher error: %v", err)
}

// Shutdown logs shutdown message
func (l *Logger) Shutdown() {
	l.log(l.out, "🛑", colorYellow, "Shutdown signal received, stopping...")
}

func (l *Logger) paint(code string) string {
	if !l.color {
		return ""
	}
	return code
}

// log is the internal logging method that handles formatting
func (l *Logger) log(w io.Writer, emoji, color, msg string, args ...any) {
	formattedMsg := fmt.Sprintf(msg, args...)
	if !l.color {
		fmt.Fprintf(w, "%s\n", formattedMsg)
		return
	}
	fmt.Fprintf(w, "%s%s %s%s\n", color, emoji, formattedMsg, colorReset)
}
