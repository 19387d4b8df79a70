//go:build rp2040 || rp2350

// airnode-pico is the firmware entry point for the Pico build.
package main

import (
	"time"

	"airnode-go/platform/rp2"
	"airnode-go/services/config"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	cfg, err := config.ForBoard(config.DefaultBoard)
	if err != nil {
		println("[main] config:", err.Error())
		cfg = config.Default()
	}
	cfg.Logging.ApplyLogLevel()

	b, err := rp2.Open(cfg, rp2.DefaultPins)
	if err != nil {
		println("[main] board:", err.Error())
		for {
			time.Sleep(time.Minute)
		}
	}
	for {
		b.Boot()
	}
}
