// Package logger provides structured logging setup and crash recovery.
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	// CrashLogDir is the directory for crash logs relative to the base path
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep
	MaxCrashLogs = 10

	defaultBasePath = ".narrativa"
)

// crashFs is swapped for an in-memory filesystem in tests.
var crashFs = afero.NewOsFs()

// process holds facts shared by every crash report of this run.
type process struct {
	mu       sync.RWMutex
	command  string
	version  string
	basePath string
}

var proc = &process{}

// CrashContext stores what one conversation was doing when a panic hit.
// Each session or request carries its own through a context.Context.
type CrashContext struct {
	mu         sync.RWMutex
	lastInput  string
	lastPrompt string
	sessionID  string
	stage      string
}

type crashKey struct{}

// WithCrashContext returns ctx carrying a fresh CrashContext.
func WithCrashContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, crashKey{}, &CrashContext{})
}

// FromContext returns the CrashContext attached to ctx, or nil.
func FromContext(ctx context.Context) *CrashContext {
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(crashKey{}).(*CrashContext)
	return cc
}

// SetBasePath sets the directory crash logs are written under.
func SetBasePath(path string) {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	proc.basePath = path
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	proc.version = version
}

// SetCommand sets the current command being executed.
func SetCommand(cmd string) {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	proc.command = cmd
}

// SetSession records the conversation in progress on ctx. No-op without a CrashContext.
func SetSession(ctx context.Context, id, stage string) {
	cc := FromContext(ctx)
	if cc == nil {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.sessionID = id
	cc.stage = stage
}

// SetLastInput sets the last user input for crash context.
func SetLastInput(ctx context.Context, input string) {
	cc := FromContext(ctx)
	if cc == nil {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.lastInput = truncateForLog(strings.TrimSpace(input), 500)
}

// SetLastPrompt sets the last rendered prompt for crash context.
func SetLastPrompt(ctx context.Context, prompt string) {
	cc := FromContext(ctx)
	if cc == nil {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.lastPrompt = truncateForLog(prompt, 2000)
}

// truncateForLog cuts on a rune boundary so Spanish text stays valid UTF-8.
func truncateForLog(value string, maxRunes int) string {
	runes := []rune(value)
	if len(runes) <= maxRunes {
		return value
	}
	return string(runes[:maxRunes]) + "... [truncated]"
}

// CrashLog is one crash report.
type CrashLog struct {
	Timestamp  time.Time
	Version    string
	Command    string
	SessionID  string
	Stage      string
	PanicValue string
	StackTrace string
	LastInput  string
	LastPrompt string
	GoVersion  string
	OS         string
	Arch       string
}

// HandlePanic recovers a panic, writes a crash log and exits.
// Usage: defer logger.HandlePanic(ctx)
func HandlePanic(ctx context.Context) {
	if r := recover(); r != nil {
		report := createCrashLog(ctx, r)
		path, err := writeCrashLog(report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
			fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, report.StackTrace)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "╭──────────────────────────────────────────────────────╮\n")
		fmt.Fprintf(os.Stderr, "│ 🔴 narrativa stopped unexpectedly                    │\n")
		fmt.Fprintf(os.Stderr, "╰──────────────────────────────────────────────────────╯\n")
		fmt.Fprintf(os.Stderr, "\nA crash log has been saved to:\n  %s\n\n", path)
		if report.SessionID != "" {
			fmt.Fprintf(os.Stderr, "Session %s can be resumed with: narrativa chat --resume %s\n\n", report.SessionID, report.SessionID)
		}
		os.Exit(1)
	}
}

// WriteCrashReport saves a crash log for panicValue using the CrashContext on ctx,
// for hosts that recover and keep running.
func WriteCrashReport(ctx context.Context, panicValue any) (string, error) {
	return writeCrashLog(createCrashLog(ctx, panicValue))
}

func createCrashLog(ctx context.Context, panicValue any) CrashLog {
	proc.mu.RLock()
	report := CrashLog{
		Timestamp:  time.Now(),
		Version:    proc.version,
		Command:    proc.command,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
	proc.mu.RUnlock()

	if cc := FromContext(ctx); cc != nil {
		cc.mu.RLock()
		report.SessionID = cc.sessionID
		report.Stage = cc.stage
		report.LastInput = cc.lastInput
		report.LastPrompt = cc.lastPrompt
		cc.mu.RUnlock()
	}
	return report
}

// writeCrashLog writes report and returns its path.
func writeCrashLog(report CrashLog) (string, error) {
	dir := getCrashLogDir()
	if err := crashFs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}
	if err := cleanOldCrashLogs(dir); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	path := getCrashLogPath(report.Timestamp)
	if err := afero.WriteFile(crashFs, path, []byte(formatCrashLog(report)), 0644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	return path, nil
}

func getCrashLogDir() string {
	proc.mu.RLock()
	basePath := proc.basePath
	proc.mu.RUnlock()

	if basePath == "" {
		basePath = defaultBasePath
	}
	return filepath.Join(basePath, CrashLogDir)
}

func getCrashLogPath(t time.Time) string {
	return filepath.Join(getCrashLogDir(), fmt.Sprintf("crash_%s.log", t.Format("20060102_150405")))
}

func formatCrashLog(report CrashLog) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"
	section := func(title, body string) {
		if body == "" {
			return
		}
		sb.WriteString("\n" + thin + title + "\n" + thin)
		sb.WriteString(strings.TrimRight(body, "\n") + "\n")
	}

	sb.WriteString(rule + "NARRATIVA CRASH LOG\n" + rule + "\n")
	fmt.Fprintf(&sb, "Timestamp: %s\n", report.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version:   %s\n", report.Version)
	fmt.Fprintf(&sb, "Command:   %s\n", report.Command)
	if report.SessionID != "" {
		fmt.Fprintf(&sb, "Session:   %s (stage %s)\n", report.SessionID, report.Stage)
	}
	fmt.Fprintf(&sb, "Go:        %s\n", report.GoVersion)
	fmt.Fprintf(&sb, "OS/Arch:   %s/%s\n", report.OS, report.Arch)

	section("PANIC VALUE", report.PanicValue)
	section("STACK TRACE", report.StackTrace)
	section("LAST USER INPUT", report.LastInput)
	section("LAST LLM PROMPT", report.LastPrompt)

	sb.WriteString("\n" + rule + "END OF CRASH LOG\n" + rule)
	return sb.String()
}

// cleanOldCrashLogs keeps only the MaxCrashLogs most recent logs in dir.
func cleanOldCrashLogs(dir string) error {
	entries, err := afero.ReadDir(crashFs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	if len(names) < MaxCrashLogs {
		return nil
	}

	// Names embed the timestamp, so lexical order is age order. Leave room for the new one.
	sort.Strings(names)
	for _, name := range names[:len(names)-MaxCrashLogs+1] {
		if err := crashFs.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", name, err)
		}
	}
	return nil
}
