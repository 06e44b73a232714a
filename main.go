package main

import (
	"context"
	"time"

	"aqmonitor-go/platform"
	"aqmonitor-go/services/config"
	"aqmonitor-go/services/system"
	"aqmonitor-go/x/timex"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot, board", platform.Board)

	cfg, err := config.Load(platform.Board)
	if err != nil {
		println("[main] config:", err.Error())
		platform.Reset("config")
	}

	dev, err := platform.Open(cfg, timex.Real)
	if err != nil {
		println("[main] devices:", err.Error())
		platform.Reset("init")
	}

	ctx := context.Background()
	if _, err := system.Start(ctx, cfg, dev, timex.Real); err != nil {
		println("[main] start:", err.Error())
		platform.Reset("init")
	}

	select {}
}
