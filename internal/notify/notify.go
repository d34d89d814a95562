package notify

import (
	"fmt"
	"log"
	"os/exec"
)

type Notifier interface {
	RecordingChanged(on bool)
	Error(msg string)
}

type Desktop struct{}

func (Desktop) RecordingChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	cmd := exec.Command("notify-send", "-a", "Dictate",
		fmt.Sprintf("Dictate: %s Recording", state))
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", "Dictate", "-u", "critical", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

// Log notifies via the process log only, for the "log" notifications.type.
type Log struct{}

func (Log) RecordingChanged(on bool) {
	state := "stopped"
	if on {
		state = "started"
	}
	log.Printf("notify: recording %s", state)
}

func (Log) Error(msg string) {
	log.Printf("notify: error: %s", msg)
}

// Nop is a Notifier that does absolutely nothing, for notifications.type=none.
type Nop struct{}

func (Nop) RecordingChanged(on bool) {}
func (Nop) Error(msg string)         {}

// New selects the Notifier for the given notifications.type value.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}
