package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const cmdName = "captcha-server"

func newRootCommand() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   cmdName,
		Short: "Stateless captcha service",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
		},
	}
	root.AddCommand(newServeCommand(v), newKeygenCommand())
	return root
}
