package cmd

import (
	"fmt"
	"os"

	"github.com/markusressel/clevod/cmd/config"
	"github.com/markusressel/clevod/cmd/fan"
	"github.com/markusressel/clevod/cmd/global"
	"github.com/markusressel/clevod/internal"
	"github.com/markusressel/clevod/internal/configuration"
	"github.com/markusressel/clevod/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clevod",
	Short: "A daemon to control the fan of a Clevo laptop.",
	Long: `clevod is a daemon that controls the fan of a Clevo laptop
through its embedded controller, using a self-tuning PID loop.`,
	// this is the default command to run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		printHeader()

		configuration.ReadConfig()
		if err := configuration.Validate(); err != nil {
			ui.Error("Config Validation Error: %s", err.Error())
			os.Exit(internal.ExitError)
		}
		ui.SetDebugEnabled(global.Verbose || configuration.CurrentConfig.Debug)

		internal.RunDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&global.CfgFile, "config", "c", "", "config file (default: clevod.yaml searched in ., $HOME and /etc/clevod)")
	rootCmd.PersistentFlags().BoolVarP(&global.NoColor, "no-color", "", false, "Disable all terminal output coloration")
	rootCmd.PersistentFlags().BoolVarP(&global.NoStyle, "no-style", "", false, "Disable all terminal output styling")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "More verbose output")

	rootCmd.AddCommand(config.Command)
	rootCmd.AddCommand(fan.Command)
}

func setupUi() {
	ui.SetDebugEnabled(global.Verbose)

	if global.NoColor {
		pterm.DisableColor()
	}
	if global.NoStyle {
		pterm.DisableStyling()
	}
}

// Print a large text with the LetterStyle from the standard theme.
func printHeader() {
	err := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("clevo", pterm.NewStyle(pterm.FgLightBlue)),
		pterm.NewLettersFromStringWithStyle("d", pterm.NewStyle(pterm.FgWhite)),
	).Render()
	if err != nil {
		fmt.Println("clevod")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		configuration.InitConfig(global.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
