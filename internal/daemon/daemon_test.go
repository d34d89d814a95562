package daemon

import (
	"net"
	"testing"
	"time"

	"github.com/quietkey/dictate/internal/config"
)

func testManager(t *testing.T) *config.Manager {
	t.Helper()
	cfg := config.Defaults()
	cfg.Transcription.APIKey = "test-key"
	cfg.General.ConversationsDir = t.TempDir()
	return config.NewManagerFrom(cfg)
}

func TestNewDaemon(t *testing.T) {
	d := New(testManager(t))
	if d == nil {
		t.Fatal("New() returned nil")
	}
	if d.notifier == nil {
		t.Error("daemon should have a notifier")
	}
	if d.status() != Idle {
		t.Errorf("initial status = %s, want Idle", d.status())
	}
}

func TestDaemonStopSessionWithNoSession(t *testing.T) {
	d := New(testManager(t))
	// Must not panic when nothing is running.
	d.stopSession()
	if d.status() != Idle {
		t.Errorf("status = %s, want Idle", d.status())
	}
}

func TestDaemonConcurrentStatusReads(t *testing.T) {
	d := New(testManager(t))
	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				d.status()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for concurrent status reads")
		}
	}
}

func TestDaemonHandleVersionCommand(t *testing.T) {
	d := New(testManager(t))
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go d.handle(server)

	if _, err := client.Write([]byte("v\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 128)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(buf[:n])
	if got == "" {
		t.Error("expected a non-empty version response")
	}
}

func TestDaemonHandleStatusCommand(t *testing.T) {
	d := New(testManager(t))
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go d.handle(server)

	if _, err := client.Write([]byte("s\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 128)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "STATUS recording=idle\n"
	if string(buf[:n]) != want {
		t.Errorf("response = %q, want %q", string(buf[:n]), want)
	}
}

func TestDaemonHandleUnknownCommand(t *testing.T) {
	d := New(testManager(t))
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go d.handle(server)

	if _, err := client.Write([]byte("z\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 128)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(buf[:n]) == 0 {
		t.Error("expected an error response for an unknown command")
	}
}
