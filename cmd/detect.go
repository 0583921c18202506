package cmd

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/markusressel/clevod/cmd/global"
	"github.com/markusressel/clevod/internal/ec"
	"github.com/markusressel/clevod/internal/ui"
	"github.com/md14454/gosensors"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Cross-check EC readings against lm-sensors",
	Long: `Reads the EC temperature and fan registers directly and prints them
next to all temperatures known to lm-sensors, to verify the register map.`,
	Run: func(cmd *cobra.Command, args []string) {
		tableConfig := &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		}

		printEcTable(tableConfig)
		printLmSensorsTables(tableConfig)
	},
}

func printEcTable(tableConfig *table.Config) {
	ui.Printfln("> EC")

	rows, err := readEcRows()
	if err != nil {
		ui.Warning("Unable to read EC (are you root?): %v", err)
		return
	}

	ecTable := table.Table{
		Headers: []string{"Register", "Value"},
		Rows:    rows,
	}

	var buf bytes.Buffer
	if err := ecTable.WriteTable(&buf, tableConfig); err != nil {
		ui.Fatal("Error printing table: %v", err)
	}
	ui.Printf("%s", buf.String())
}

func readEcRows() ([][]string, error) {
	portIO, err := ec.OpenDevPort()
	if err != nil {
		return nil, err
	}
	device := ec.NewDevice(
		ec.NewPortTransport(portIO),
		ec.NewSysfsImage(ec.SysfsImagePath),
	)

	readings, err := device.ReadAll()
	if err != nil {
		return nil, err
	}

	return [][]string{
		{"CPU Temp", fmt.Sprintf("%d°C", readings.CpuTemp)},
		{"GPU Temp", fmt.Sprintf("%d°C", readings.GpuTemp)},
		{"Fan Duty", fmt.Sprintf("%d%%", readings.FanDuty)},
		{"Fan RPM", strconv.Itoa(readings.FanRpm)},
	}, nil
}

func printLmSensorsTables(tableConfig *table.Config) {
	gosensors.Init()
	defer gosensors.Cleanup()
	chips := gosensors.GetDetectedChips()

	for i := 0; i < len(chips); i++ {
		chip := chips[i]

		var rows [][]string
		features := chip.GetFeatures()
		for j := 0; j < len(features); j++ {
			feature := features[j]
			if feature.Type != gosensors.FeatureTypeTemp {
				continue
			}

			subfeatures := feature.GetSubFeatures()
			for k := 0; k < len(subfeatures); k++ {
				subfeature := subfeatures[k]
				if subfeature.Type != gosensors.SubFeatureTypeTempInput {
					continue
				}
				rows = append(rows, []string{
					feature.Name,
					fmt.Sprintf("%.0f°C", subfeature.GetValue()),
				})
			}
		}

		if len(rows) <= 0 {
			continue
		}

		ui.Printfln("> %s", chip.Prefix)
		sensorTable := table.Table{
			Headers: []string{"Sensor", "Value"},
			Rows:    rows,
		}

		var buf bytes.Buffer
		if err := sensorTable.WriteTable(&buf, tableConfig); err != nil {
			ui.Fatal("Error printing table: %v", err)
		}
		ui.Printf("%s", buf.String())
	}
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
