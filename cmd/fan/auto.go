package fan

import (
	"github.com/spf13/cobra"
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Return the fan to closed-loop control",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send("SET_AUTO")
	},
}

func init() {
	Command.AddCommand(autoCmd)
}
