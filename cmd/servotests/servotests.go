package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/pca9685"
)

func main() {
	cfgFile := flag.String("config", config.DefaultPath, "robot config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFile, nil)
	if err != nil {
		fmt.Println("Failed to load config", err)
		return
	}

	pwmController, err := pca9685.New(cfg.Wiring.I2CBus)
	if err != nil {
		fmt.Println("Failed to open PCA9685", err)
		return
	}
	defer pwmController.Close()

	err = pwmController.Configure()
	if err != nil {
		fmt.Println("Failed to configure PCA9685", err)
		return
	}
	servo := &pca9685.Servo{
		Board:    pwmController,
		Port:     cfg.Wiring.ServoPort,
		MinPulse: cfg.Wiring.ServoMinPulse,
		MaxPulse: cfg.Wiring.ServoMaxPulse,
	}

	fmt.Printf(
		`Steering servo on port %d, %v-%v
Commands:
    d <degrees>         # Move steering servo, 0-180
    o <orientation>     # Move to the calibrated primary/alternate position
    u <microseconds>    # Raw pulse width, for finding the end stops
    p <n> <duty-cycle>  # Raw PWM duty cycle 0.0-1.0 on port n

`, servo.Port, servo.MinPulse, servo.MaxPulse)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "d", "u":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			v, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[1])
				continue
			}
			if parts[0] == "d" {
				fmt.Printf("Setting steering to %.1f degrees\n", v)
				err = servo.SetPosition(v)
			} else {
				fmt.Printf("Setting pulse width to %.0fus\n", v)
				err = pwmController.SetPulse(servo.Port, time.Duration(v*float64(time.Microsecond)))
			}
			if err != nil {
				fmt.Println("Failed: ", err)
			}
		case "o":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			o, err := drivetrain.ParseOrientation(parts[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			pos := cfg.Steering.Position(o)
			fmt.Printf("Setting steering to %v (%.1f degrees)\n", o, pos)
			if err := servo.SetPosition(pos); err != nil {
				fmt.Println("Failed: ", err)
			}
		case "p":
			if len(parts) < 3 {
				fmt.Println("Not enough parameters")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Expected int, not ", parts[1])
				continue
			}
			if n < 0 || n >= pca9685.NumPorts {
				fmt.Println("Expected 0 <= n < 16")
				continue
			}
			v, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[2])
				continue
			}
			fmt.Printf("Setting PWM %d to %f\n", n, v)
			if err := pwmController.SetPWM(n, v); err != nil {
				fmt.Println("Failed to write to PCA9685: ", err)
				return
			}
		default:
			fmt.Println("Unknown command", parts[0])
		}
	}
}
