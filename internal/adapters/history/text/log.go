package text

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
)

const (
	fileMode        = 0o600
	dirMode         = 0o700
	tempFilePattern = ".history-*.txt.tmp"
)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

type Log struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.HistoryLog = (*Log)(nil)

func New(path string) (*Log, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: history path is empty", domain.ErrInvalidConfig)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Log{path: absPath, mu: lockForPath(absPath)}, nil
}

func (l *Log) Path() string {
	return l.path
}

// Entries returns non-blank lines in file order. IDs are 1-based line numbers
// and only identify an entry until the next write.
func (l *Log) Entries(ctx context.Context) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, domain.HistoryEntry{ID: int64(i + 1), Raw: strings.TrimSpace(line)})
	}

	return entries, nil
}

func (l *Log) Append(ctx context.Context, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "\r\n") {
		return fmt.Errorf("%w: %q is not a single line", domain.ErrHistoryCorruption, raw)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), dirMode); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}

	prefix, err := l.needsNewline()
	if err != nil {
		_ = file.Close()
		return err
	}

	if _, err := file.WriteString(prefix + raw + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("append history file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}

	return nil
}

// Remove drops the first line whose content equals entry.Raw.
func (l *Log) Remove(ctx context.Context, entry domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.readLines()
	if err != nil {
		return err
	}

	target := strings.TrimSpace(entry.Raw)
	for i, line := range lines {
		if strings.TrimSpace(line) != target {
			continue
		}

		kept := append(lines[:i:i], lines[i+1:]...)
		return l.rewrite(kept)
	}

	return fmt.Errorf("%w: entry %q not in %s", domain.ErrHistoryCorruption, target, l.path)
}

func (l *Log) readLines() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history file: %w", err)
	}

	return lines, nil
}

func (l *Log) needsNewline() (string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("read history file: %w", err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		return "\n", nil
	}
	return "", nil
}

func (l *Log) rewrite(lines []string) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	tempFile, err := os.CreateTemp(filepath.Dir(l.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(buf.Bytes()); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp history file: %w", err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp history file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp history file: %w", err)
	}

	if err := os.Rename(tempName, l.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
