package fan

import (
	"fmt"

	"github.com/markusressel/clevod/internal/configuration"
	"github.com/markusressel/clevod/internal/ipc"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "fan",
	Short:            "Fan related commands",
	Long:             ``,
	TraverseChildren: true,
}

// send delivers a single request to the running daemon and prints the
// response line.
func send(request string) error {
	pterm.DisableOutput()
	configuration.ReadConfig()

	response, err := ipc.Send(configuration.CurrentConfig.Ipc.SocketPath, request)
	if err != nil {
		return fmt.Errorf("cannot reach daemon (is it running?): %w", err)
	}
	fmt.Println(response)
	return nil
}
