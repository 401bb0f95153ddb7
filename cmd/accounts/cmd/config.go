package cmd

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

var configColor bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		masked := cfg.Masked()
		out := print.MaybePrettyJSON(masked)
		if configColor {
			out = print.MaybeHighlightJSON(masked)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configColor, "color", false, "highlight the output")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
