package fan

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the current fan duty, RPM and control mode",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send("GET_FAN")
	},
}

func init() {
	Command.AddCommand(statusCmd)
}
