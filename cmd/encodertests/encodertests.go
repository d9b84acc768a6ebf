package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/encoder"
)

// Prints the encoder counts while the robot is pushed by hand, to check the
// wiring and the counts-per-revolution figure.
func main() {
	cfgFile := flag.String("config", config.DefaultPath, "robot config file")
	interval := flag.Duration("interval", 200*time.Millisecond, "print interval")
	flag.Parse()

	cfg, err := config.Load(*cfgFile, nil)
	if err != nil {
		fmt.Println("Failed to load config", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-signals
		cancel()
	}()

	var names []string
	for name := range cfg.Wiring.Encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	counters := map[string]*encoder.Counter{}
	for _, name := range names {
		pin := cfg.Wiring.Encoders[name]
		c, err := encoder.Open(ctx, pin)
		if err != nil {
			fmt.Println("Failed to open encoder", name, err)
			return
		}
		defer c.Close()
		counters[name] = c
		fmt.Printf("%s on %s\n", name, pin)
	}

	g := cfg.Geometry
	fmt.Printf("%d counts per rev, %.2fin per rev\n", g.CountsPerRev, g.WheelCircumIn())
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
		}
		var parts []string
		for _, name := range names {
			n := counters[name].Count()
			parts = append(parts, fmt.Sprintf("%s=%5d (%5.1fin)", name, n, inches(g, n)))
		}
		fmt.Printf("\r%s", strings.Join(parts, "  "))
	}
}

func inches(g chassis.Geometry, counts int64) float64 {
	return float64(counts) * g.WheelCircumIn() / float64(g.CountsPerRev)
}
