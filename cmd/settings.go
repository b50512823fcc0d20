package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"ingestd/internal/config"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the declared runtime settings and their current values",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		for _, cat := range config.SettingsSchema {
			color.Cyan("%s", cat.Label)
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Key", "Type", "Value", "Critical"})
			table.SetBorder(true)
			for _, spec := range cat.Settings {
				value := appInstance.Settings.Get(spec.Key, spec.Default)
				critical := ""
				if spec.Critical {
					critical = "yes"
				}
				table.Append([]string{spec.Key, string(spec.Type), value, critical})
			}
			table.Render()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}
