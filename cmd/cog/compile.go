package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogvm/cog/internal/cli"
)

// compileCmd represents the compile command
var compileCmd = &cobra.Command{
	Use:   "compile [solution file]",
	Short: "Compile a solution and print its listing",
	Long: `Compiles the solution against a catalog program or ad-hoc hardware and
prints the instruction listing, without executing.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := runOptions(cmd, args)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if err := cli.Compile(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	targetFlags(compileCmd)
	compileCmd.Flags().Bool("graph", false, "Print a Mermaid flowchart instead of the listing")
}
