package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/screen"
)

// Echoes each line typed onto the status screen.  "!" toggles the fault
// marker.
func main() {
	device := flag.String("device", screen.DefaultDevice, "framebuffer device")
	flag.Parse()

	ctx := context.Background()
	s := screen.New(nil)
	go s.Loop(ctx, *device)

	s.SetBusVoltage(16.8)
	s.SetOrientation(drivetrain.Primary)

	fault := false
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "!" {
			fault = !fault
			s.SetFault(fault)
			continue
		}
		s.Status(line)
	}
}
