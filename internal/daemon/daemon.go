// Package daemon runs the control-socket server that starts, stops, and
// reports on dictation sessions.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/quietkey/dictate/internal/bus"
	"github.com/quietkey/dictate/internal/config"
	"github.com/quietkey/dictate/internal/notify"
	"github.com/quietkey/dictate/internal/session"
)

// Status is the daemon's recording state as reported to `dictate status`.
type Status string

const (
	Idle      Status = "idle"
	Recording Status = "recording"
)

// maxSessionDuration bounds any single recording in case a client never
// sends the matching toggle-off (a crashed keybind daemon, a lost socket).
const maxSessionDuration = 30 * time.Minute

// Daemon owns the control socket and the at-most-one active Session.
type Daemon struct {
	cfgMgr   *config.Manager
	notifier notify.Notifier

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	state         Status
	sess          *session.Session
	sessionCancel context.CancelFunc
}

// New builds a Daemon around cfgMgr, which the daemon watches for the
// lifetime of the process so an edited config.toml is picked up by the
// next session without a restart. The daemon's own notifier reflects the
// config as loaded at startup; it is independent of the per-session
// notifier wired inside session.New, which always uses the current config.
func New(cfgMgr *config.Manager) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		cfgMgr:   cfgMgr,
		notifier: notify.New(cfgMgr.GetConfig().Notifications.Type),
		ctx:      ctx,
		cancel:   cancel,
		state:    Idle,
	}
}

func (d *Daemon) status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Run listens on the control socket and serves commands until SIGINT,
// SIGTERM, or a "q" command requests shutdown.
func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("create pid file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.cfgMgr.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config watcher unavailable, config.toml edits require a restart: %v", err)
	}
	defer d.cfgMgr.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("daemon: received signal %v, shutting down", sig)
		d.cancel()
	}()

	go func() {
		<-d.ctx.Done()
		d.stopSession()
		ln.Close()
	}()

	log.Printf("daemon: listening on control socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("daemon: shutdown complete")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil || len(line) == 0 {
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}

	switch line[0] {
	case 't':
		d.toggle()
		fmt.Fprint(c, "OK toggled\n")
	case 's':
		fmt.Fprintf(c, "STATUS recording=%s\n", d.status())
	case 'v':
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case 'q':
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
	}
}

// toggle starts a new Session when idle, or stops the active one when
// recording. Stopping a Session is not instant: Run waits for its capture,
// timeout, emit and partial-display goroutines (fallback requests still in
// flight are not waited for), so the status briefly reads Recording after
// a stopping toggle until the goroutine below resets it.
func (d *Daemon) toggle() {
	d.mu.Lock()
	switch d.state {
	case Idle:
		d.startSessionLocked()
	case Recording:
		d.stopSessionLocked()
	}
	d.mu.Unlock()
}

func (d *Daemon) startSessionLocked() {
	cfg := d.cfgMgr.GetConfig()
	sess, err := session.New(cfg, cfg.General.ConversationsDir)
	if err != nil {
		log.Printf("daemon: failed to build session: %v", err)
		d.notifier.Error("failed to start dictation")
		return
	}

	sessCtx, cancel := context.WithTimeout(d.ctx, maxSessionDuration)
	d.sess = sess
	d.sessionCancel = cancel
	d.state = Recording

	go func() {
		if err := sess.Run(sessCtx); err != nil {
			log.Printf("daemon: session ended with error: %v", err)
			d.notifier.Error("dictation session failed")
		}
		cancel()
		d.mu.Lock()
		d.sess = nil
		d.sessionCancel = nil
		d.state = Idle
		d.mu.Unlock()
	}()
}

func (d *Daemon) stopSessionLocked() {
	if d.sessionCancel != nil {
		d.sessionCancel()
	}
}

// stopSession is the unlocked entry point used on daemon shutdown.
func (d *Daemon) stopSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopSessionLocked()
}
