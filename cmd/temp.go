package cmd

import (
	"fmt"

	"github.com/markusressel/clevod/internal/configuration"
	"github.com/markusressel/clevod/internal/ipc"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var tempCmd = &cobra.Command{
	Use:   "temp",
	Short: "Query the current CPU and GPU temperatures",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()
		configuration.ReadConfig()

		response, err := ipc.Send(configuration.CurrentConfig.Ipc.SocketPath, "GET_TEMP")
		if err != nil {
			return fmt.Errorf("cannot reach daemon (is it running?): %w", err)
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tempCmd)
}
