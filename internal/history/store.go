// File path: internal/history/store.go
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/ecomqa/internal/agent"
)

// Entry is one answered question as recorded in the journal.
type Entry struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	SQL         string    `json:"sql,omitempty"`
	Rows        int       `json:"rows"`
	Summary     string    `json:"summary,omitempty"`
	Charted     bool      `json:"charted"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	AskedAt     time.Time `json:"asked_at"`
	Duration    string    `json:"duration,omitempty"`
}

// EntryFromAnswer condenses an answer for the journal.
func EntryFromAnswer(answer *agent.Answer, askedAt time.Time) Entry {
	entry := Entry{AskedAt: askedAt.UTC()}
	if answer == nil {
		return entry
	}
	entry.ID = answer.ID
	entry.Question = answer.Question
	entry.SQL = answer.SQL
	entry.Rows = len(answer.Rows)
	entry.Summary = answer.Summary
	entry.Charted = answer.Chart != nil
	entry.Duration = answer.Duration
	if answer.Failure != nil {
		entry.FailedStage = string(answer.Failure.Stage)
		entry.Error = answer.Failure.Message
	}
	return entry
}

// Store appends entries to a JSON-lines file.
type Store struct {
	path string
	mu   sync.RWMutex
}

func NewStore(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("history path required")
	}
	if dir := filepath.Dir(trimmed); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	return &Store{path: trimmed}, nil
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Append(ctx context.Context, entries ...Entry) error {
	if s == nil {
		return errors.New("history not initialized")
	}
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, errors.New("history not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

// Clear truncates the journal.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil {
		return errors.New("history not initialized")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	return file.Close()
}

func (s *Store) readAll(ctx context.Context) ([]Entry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), 8<<20)
	var entries []Entry
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}
