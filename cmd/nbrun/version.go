package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbrun/nbrun"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nbrun",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nbrun version %s\n", nbrun.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
