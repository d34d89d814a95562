// Package bus implements the Unix domain control socket and PID file the
// CLI and daemon use to talk to each other.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const SockName = "control.sock"
const PidName = "dictate.pid"
const ProtoVer = "0.1"

// getSockPath and getPidPath are the unexported path builders; SockPath and
// PidPath are their exported wrappers, kept separate so tests can exercise
// the managers below against a temp directory without touching
// os.UserCacheDir.
func getSockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dictate", SockName), nil
}

func getPidPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dictate", PidName), nil
}

// SockPath returns ~/.cache/dictate/control.sock.
func SockPath() (string, error) { return getSockPath() }

// PidPath returns ~/.cache/dictate/dictate.pid.
func PidPath() (string, error) { return getPidPath() }

// pidManager owns the lifecycle of one PID file: creating it, checking
// whether the process it names is still alive, and cleaning up stale or
// corrupt files.
type pidManager struct {
	path string
}

func defaultPidManager() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func (pm *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(pm.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pm.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (pm *pidManager) remove() error {
	return os.Remove(pm.path)
}

// checkExisting returns an error if a live daemon already owns pm.path.
// A missing, unreadable, or non-numeric PID file is treated as no daemon
// running; a PID file naming a dead process is removed rather than left to
// confuse the next startup.
func (pm *pidManager) checkExisting() error {
	data, err := os.ReadFile(pm.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		_ = os.Remove(pm.path)
		return nil
	}

	if pm.isProcessAlive(pid) {
		return fmt.Errorf("daemon already running with PID %d", pid)
	}

	_ = os.Remove(pm.path)
	return nil
}

// isProcessAlive probes pid with signal 0, the standard liveness check: it
// delivers no signal but still fails with ESRCH if the process is gone.
func (pm *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// socketManager owns the lifecycle of the control socket.
type socketManager struct {
	path string
}

func defaultSocketManager() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func (sm *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(sm.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sm.path) // stale socket from a prior run
	return net.Listen("unix", sm.path)
}

func (sm *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", sm.path)
}

// Listen opens the control socket, removing any stale socket file left
// behind by a prior run.
func Listen() (net.Listener, error) {
	sm, err := defaultSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

// Dial connects to a running daemon's control socket.
func Dial() (net.Conn, error) {
	sm, err := defaultSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand dials the control socket, writes cmd followed by a newline,
// and returns the daemon's one-line response.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	return bufio.NewReader(c).ReadString('\n')
}

// CheckExistingDaemon returns an error if a daemon is already running.
func CheckExistingDaemon() error {
	pm, err := defaultPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

// CreatePidFile writes the current process's PID to the PID file.
func CreatePidFile() error {
	pm, err := defaultPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

// RemovePidFile removes the PID file.
func RemovePidFile() error {
	pm, err := defaultPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}
