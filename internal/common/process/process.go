// File path: internal/common/process/process.go
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/ecomqa/internal/common"
)

// Spec describes a helper process, such as a local model server, that runs
// for the lifetime of a command.
type Spec struct {
	Name          string
	Command       string
	Args          []string
	Env           []string
	ReadyURL      string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	StopTimeout   time.Duration
}

// Service is a running helper process.
type Service struct {
	spec   Spec
	cmd    *exec.Cmd
	logger *slog.Logger

	done    chan struct{}
	mu      sync.RWMutex
	waitErr error
}

// Start launches the process, forwards its output to the logger and blocks
// until ReadyURL answers or the readiness timeout expires.
func Start(ctx context.Context, spec Spec) (*Service, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return nil, errors.New("process: command required")
	}
	if strings.TrimSpace(spec.Name) == "" {
		spec.Name = filepath.Base(spec.Command)
	}
	logger := common.Logger().With("component", "process/"+strings.ToLower(spec.Name))
	logger.Info("process: launching", "command", spec.Command, "args", strings.Join(spec.Args, " "))

	// The process outlives ctx; Stop ends it.
	cmd := exec.Command(spec.Command, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe %s: %w", spec.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stderr pipe %s: %w", spec.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", spec.Name, err)
	}

	svc := &Service{spec: spec, cmd: cmd, logger: logger, done: make(chan struct{})}
	var streams sync.WaitGroup
	streams.Add(2)
	go svc.forward(&streams, stdout, slog.LevelDebug)
	go svc.forward(&streams, stderr, slog.LevelInfo)
	go func() {
		streams.Wait()
		err := cmd.Wait()
		svc.mu.Lock()
		svc.waitErr = err
		svc.mu.Unlock()
		close(svc.done)
	}()

	if err := svc.waitReady(ctx); err != nil {
		_ = svc.Stop(context.Background())
		return nil, err
	}
	logger.Info("process: ready", "url", spec.ReadyURL)
	return svc, nil
}

func (s *Service) forward(wg *sync.WaitGroup, pipe io.Reader, level slog.Level) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.logger.Log(context.Background(), level, scanner.Text())
	}
}

// Done is closed once the process has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Stop interrupts the process and kills it if it has not exited within
// StopTimeout.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	select {
	case <-s.done:
		return s.exitErr()
	default:
	}
	s.logger.Info("process: stopping")
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("process: interrupt failed", "error", err)
	}
	timeout := s.spec.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return s.exitErr()
	case <-timer.C:
		s.logger.Warn("process: forcing kill")
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("process: kill %s: %w", s.spec.Name, err)
		}
		<-s.done
		return s.exitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the process so a Service can be released with other closers.
func (s *Service) Close() error {
	return s.Stop(context.Background())
}

func (s *Service) waitReady(ctx context.Context) error {
	if strings.TrimSpace(s.spec.ReadyURL) == "" {
		return nil
	}
	timeout := s.spec.ReadyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := s.spec.ReadyInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-readyCtx.Done():
			if lastErr != nil {
				return fmt.Errorf("process: %s not ready after %s: %w", s.spec.Name, timeout, lastErr)
			}
			return fmt.Errorf("process: %s not ready after %s: %w", s.spec.Name, timeout, readyCtx.Err())
		case <-s.done:
			return fmt.Errorf("process: %s exited before ready: %v", s.spec.Name, s.exitErr())
		case <-ticker.C:
			if lastErr = Probe(readyCtx, s.spec.ReadyURL); lastErr == nil {
				return nil
			}
		}
	}
}

// Probe reports whether url answers with a non-5xx status.
func Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) exitErr() error {
	s.mu.RLock()
	err := s.waitErr
	s.mu.RUnlock()
	if err == nil {
		return nil
	}
	// Exits caused by our own interrupt count as clean.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		return nil
	}
	return err
}

// BinaryPath resolves an executable on PATH.
func BinaryPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("process: binary name required")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("process: locate %s: %w", name, err)
	}
	return filepath.Clean(path), nil
}
