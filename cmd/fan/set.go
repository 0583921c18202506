package fan

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <percentage>",
	Short: "Set the fan to a fixed duty cycle ([1..100]%), disabling auto control",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		duty, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return send(fmt.Sprintf("SET_FAN %d", duty))
	},
}

func init() {
	Command.AddCommand(setCmd)
}
