package main

import (
	"github.com/go-go-golems/canvas-agent/pkg/settings"
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "canvas-agent",
	Short: "canvas-agent runs the canvas planning agent over HTTP or from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := settings.BindViper(viper.GetViper(), cmd); err != nil {
			return err
		}
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		return clay.InitLogger()
	},
	SilenceUsage: true,
}

func main() {
	settings.AddFlags(rootCmd)

	err := clay.InitViper("canvas-agent", rootCmd)
	cobra.CheckErr(err)

	rootCmd.AddCommand(newServeCommand(), newRunCommand())
	cobra.CheckErr(rootCmd.Execute())
}
