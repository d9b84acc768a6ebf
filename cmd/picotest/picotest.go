package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/picobldc"
)

// Spins one wheel, for checking motor wiring and direction.
func main() {
	cfgFile := flag.String("config", config.DefaultPath, "robot config file")
	wheelName := flag.String("wheel", "front_right", "wheel to drive")
	percent := flag.Float64("percent", 20, "motor power, -100 to 100")
	duration := flag.Duration("for", 2*time.Second, "how long to drive")
	flag.Parse()

	fmt.Println("Pico-BLDC test program")
	cfg, err := config.Load(*cfgFile, nil)
	if err != nil {
		panic(err)
	}
	wheel, err := hardware.ParseWheel(*wheelName)
	if err != nil {
		panic(err)
	}
	pico, err := picobldc.New(cfg.Wiring.I2CBus)
	if err != nil {
		panic(err)
	}
	defer pico.Close()
	fmt.Println("Created PicoBLDC object. Enabling watchdog...")

	if err := pico.SetWatchdog(cfg.Wiring.Watchdog); err != nil {
		panic(err)
	}
	fmt.Println("Watchdog enabled.")

	var speeds hardware.PerWheel[int16]
	speeds[wheel] = picobldc.SpeedFromPercent(*percent)
	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		if err := pico.SetMotorSpeeds(speeds[hardware.FrontLeft], speeds[hardware.FrontRight],
			speeds[hardware.BackLeft], speeds[hardware.BackRight]); err != nil {
			fmt.Println("Failed to set speeds:", err)
			break
		}
		battV, _ := pico.BattVolts()
		status, err := pico.Status()
		fmt.Printf("%v %.0f%% %.2fV Status=%x %v\n", wheel, *percent, battV, status, err)
		time.Sleep(100 * time.Millisecond)
	}
	_ = pico.SetMotorSpeeds(0, 0, 0, 0)
}
