package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/firmlet/config"
	"github.com/wippyai/firmlet/runner/host"
	"github.com/wippyai/firmlet/runner/host/ble"
)

// consoleAddr is the advertiser address of beacons sent from the console.
var consoleAddr = ble.Address{0x01, 0x00, 0x00, 0x00, 0xF1, 0xC0}

const consoleHelp = "press N | release N | beacon CH HEX | send TEXT | leds | help | quit"

// console turns typed commands into board stimuli.
type console struct {
	board  *host.Board
	air    *host.Air
	applet string
}

func newConsole(sys *system, cfg *config.Config) *console {
	name := cfg.Applet.Path
	if name == "" {
		name = "built-in demo"
	}
	return &console{board: sys.board, air: sys.air, applet: name}
}

// Execute runs one command line. quit is true when the user asked to leave.
func (c *console) Execute(line string) (out string, quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "quit", "exit", "q":
		return "", true, nil

	case "help", "?":
		return consoleHelp, false, nil

	case "press", "release":
		if len(args) != 1 {
			return "", false, fmt.Errorf("usage: %s N", cmd)
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return "", false, fmt.Errorf("button %q: %w", args[0], err)
		}
		if err := c.board.PressButton(i, cmd == "press"); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("button %d %sed", i, cmd), false, nil

	case "beacon":
		if len(args) < 1 || len(args) > 2 {
			return "", false, fmt.Errorf("usage: beacon CH [HEX]")
		}
		ch, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil || ch > 39 {
			return "", false, fmt.Errorf("channel %q: want 0..39", args[0])
		}
		var ad []byte
		if len(args) == 2 {
			if ad, err = hex.DecodeString(args[1]); err != nil {
				return "", false, fmt.Errorf("payload: %w", err)
			}
		}
		frame, err := ble.EncodeAdvertisement(ble.AdvNonconnInd, consoleAddr, ad)
		if err != nil {
			return "", false, err
		}
		n := c.air.Transmit(uint8(ch), frame)
		return fmt.Sprintf("beacon on channel %d captured by %d receiver(s)", ch, n), false, nil

	case "send":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		n := c.board.FeedSerial([]byte(text + "\n"))
		return fmt.Sprintf("%d byte(s) sent over serial", n), false, nil

	case "leds":
		return renderLEDs(c.board.LEDStates(), "●", "○"), false, nil
	}
	return "", false, fmt.Errorf("unknown command %q (%s)", cmd, consoleHelp)
}

func renderLEDs(states []bool, on, off string) string {
	if len(states) == 0 {
		return "no LEDs"
	}
	parts := make([]string, len(states))
	for i, s := range states {
		mark := off
		if s {
			mark = on
		}
		parts[i] = fmt.Sprintf("%d:%s", i, mark)
	}
	return strings.Join(parts, " ")
}
