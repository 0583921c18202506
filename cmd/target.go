package cmd

import (
	"fmt"
	"strconv"

	"github.com/markusressel/clevod/internal/configuration"
	"github.com/markusressel/clevod/internal/ipc"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var targetCmd = &cobra.Command{
	Use:   "target <temperature>",
	Short: "Set the target temperature of the running daemon ([40..100]°C)",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()
		configuration.ReadConfig()

		temp, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}

		response, err := ipc.Send(
			configuration.CurrentConfig.Ipc.SocketPath,
			fmt.Sprintf("SET_TARGET_TEMP %d", temp),
		)
		if err != nil {
			return fmt.Errorf("cannot reach daemon (is it running?): %w", err)
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetCmd)
}
