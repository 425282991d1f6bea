// File path: internal/common/process/process_test.go
package process

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T) string {
	t.Helper()
	path, err := BinaryPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return path
}

func TestStartAndStop(t *testing.T) {
	sh := shell(t)
	svc, err := Start(context.Background(), Spec{
		Name:        "sleeper",
		Command:     sh,
		Args:        []string{"-c", "echo started; exec sleep 30"},
		StopTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	select {
	case <-svc.Done():
	case <-time.After(time.Second):
		t.Fatal("process still running after Stop")
	}
	assert.NoError(t, svc.Stop(context.Background()))
}

func TestStartWaitsForReadyURL(t *testing.T) {
	sh := shell(t)
	ready := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ready.Close()

	svc, err := Start(context.Background(), Spec{
		Command:       sh,
		Args:          []string{"-c", "exec sleep 30"},
		ReadyURL:      ready.URL,
		ReadyInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestStartFailsWhenProcessExitsEarly(t *testing.T) {
	sh := shell(t)
	_, err := Start(context.Background(), Spec{
		Name:          "quitter",
		Command:       sh,
		Args:          []string{"-c", "exit 3"},
		ReadyURL:      "http://127.0.0.1:1/",
		ReadyInterval: 10 * time.Millisecond,
		ReadyTimeout:  5 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quitter")
}

func TestStartRequiresCommand(t *testing.T) {
	_, err := Start(context.Background(), Spec{Name: "empty"})
	assert.Error(t, err)
	_, err = BinaryPath(" ")
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	assert.NoError(t, Probe(context.Background(), srv.URL))
	status = http.StatusServiceUnavailable
	assert.Error(t, Probe(context.Background(), srv.URL))
}
