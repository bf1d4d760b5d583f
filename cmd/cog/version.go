package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogvm/cog"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cog",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cog version %s\n", strings.TrimSpace(cog.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
