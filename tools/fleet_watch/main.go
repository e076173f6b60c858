// fleet_watch follows a running hub's broadcast stream and prints a
// fleet summary whenever the local read model changes. It rides out hub
// restarts with the subscriber session's backoff.
//
// Usage:
//
//	go run ./tools/fleet_watch -hub ws://localhost:8080/ws -base 1s -attempts 5
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/realtime/ws"
)

func main() {
	hubURL := flag.String("hub", "ws://localhost:8080/ws", "WebSocket URL of the hub")
	base := flag.Duration("base", time.Second, "reconnect backoff base delay")
	attempts := flag.Int("attempts", 5, "max consecutive reconnect attempts")
	interval := flag.Duration("interval", time.Second, "poll interval for printing changes")
	flag.Parse()

	if err := run(*hubURL, *base, *attempts, *interval); err != nil {
		fmt.Fprintf(os.Stderr, "fleet_watch: %v\n", err)
		os.Exit(1)
	}
}

func run(hubURL string, base time.Duration, attempts int, interval time.Duration) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	session, err := ws.NewSession(ws.SessionConfig{
		URL:         hubURL,
		BackoffBase: base,
		MaxAttempts: attempts,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if err := session.Connect(); err != nil {
		return err
	}
	defer session.Disconnect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastLine string
	for {
		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
			if session.State() == ws.StateTerminated {
				return fmt.Errorf("session terminated after %d attempts", attempts)
			}
			line := summarize(session.Snapshot())
			if line != lastLine {
				fmt.Println(line)
				lastLine = line
			}
		}
	}
}

func summarize(snap fleet.Snapshot) string {
	online, active := 0, 0
	for _, d := range snap.Devices {
		if d.Status != fleet.DeviceOffline {
			online++
		}
	}
	loaded := 0
	for _, m := range snap.Models {
		if m.Loaded {
			loaded++
		}
	}
	for _, s := range snap.Sessions {
		if s.Active() {
			active++
		}
	}
	return fmt.Sprintf("devices %d (%d online)  models %d (%d loaded)  sessions %d (%d active)",
		len(snap.Devices), online, len(snap.Models), loaded, len(snap.Sessions), active)
}
