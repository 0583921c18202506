package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/markusressel/clevod/cmd/global"
	"github.com/markusressel/clevod/internal/configuration"
	"github.com/markusressel/clevod/internal/ipc"
	"github.com/mgutz/ansi"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const monitorHistorySize = 60

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the daemon state live in the terminal",
	Long:  `Polls the running daemon once per second and renders temperatures, fan state and a temperature graph.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()
		configuration.ReadConfig()
		socketPath := configuration.CurrentConfig.Ipc.SocketPath

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		tick := time.NewTicker(1 * time.Second)
		defer tick.Stop()

		var cpuHistory []float64
		for {
			select {
			case <-sig:
				return nil
			case <-tick.C:
				response, err := ipc.Send(socketPath, "STATUS")
				if err != nil {
					return fmt.Errorf("cannot reach daemon (is it running?): %w", err)
				}

				var cpu, gpu, duty, rpm, auto int
				if _, err := fmt.Sscanf(response, "CPU:%d GPU:%d FAN_DUTY:%d FAN_RPM:%d AUTO:%d",
					&cpu, &gpu, &duty, &rpm, &auto); err != nil {
					return fmt.Errorf("unexpected daemon response %q: %w", response, err)
				}

				cpuHistory = append(cpuHistory, float64(cpu))
				if len(cpuHistory) > monitorHistorySize {
					cpuHistory = cpuHistory[len(cpuHistory)-monitorHistorySize:]
				}

				render(cpu, gpu, duty, rpm, auto, cpuHistory)
			}
		}
	},
}

func render(cpu int, gpu int, duty int, rpm int, auto int, cpuHistory []float64) {
	// clear screen, cursor home
	fmt.Print("\033[2J\033[H")

	mode := "MANUAL"
	if auto == 1 {
		mode = "AUTO"
	}

	fmt.Printf("CPU: %s  GPU: %s  FAN: %3d%% (%d RPM)  MODE: %s\n\n",
		colorTemp(cpu), colorTemp(gpu), duty, rpm, mode)

	if len(cpuHistory) >= 2 {
		fmt.Println(asciigraph.Plot(
			cpuHistory,
			asciigraph.Height(10),
			asciigraph.Caption("CPU temperature (°C)"),
		))
	}
}

// colorTemp renders a temperature colored by severity.
func colorTemp(temp int) string {
	text := fmt.Sprintf("%3d°C", temp)
	if global.NoColor {
		return text
	}
	var color string
	switch {
	case temp < 50:
		color = "green"
	case temp < 70:
		color = "yellow"
	case temp < 85:
		color = "red"
	default:
		color = "magenta"
	}
	return ansi.Color(text, color)
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
