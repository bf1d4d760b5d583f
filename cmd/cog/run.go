package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogvm/cog/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [solution file]",
	Short: "Compile and execute a solution",
	Long: `Compiles the solution and executes it to termination against a catalog
program or ad-hoc hardware, then reports the verdict.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := runOptions(cmd, args)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	targetFlags(runCmd)

	runCmd.Flags().Bool("trace", false, "Print a machine snapshot per executed cycle")
	runCmd.Flags().Bool("step", false, "Animate execution at the stepping cadence")
	runCmd.Flags().Int("speed", 1, "Speed multiplier for --step (1, 2, 5 or 10)")
}

// targetFlags registers the flags that pick what a solution compiles
// and runs against. Shared by run and compile.
func targetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "Solution source file")
	cmd.Flags().String("puzzle", "", "Catalog target as hardware/program, e.g. scrapyard-one/pass-through")
	cmd.Flags().Int("registers", 1, "User registers on the ad-hoc hardware")
	cmd.Flags().Int("stacks", 0, "Stacks on the ad-hoc hardware")
	cmd.Flags().Int("stack-size", 0, "Stack depth on the ad-hoc hardware")
	cmd.Flags().String("input", "", "Comma-separated input values for the ad-hoc target")
	cmd.Flags().String("expected", "", "Comma-separated expected output for the ad-hoc target")
}

// runOptions collects the target flags into cli.RunOptions.
func runOptions(cmd *cobra.Command, args []string) (cli.RunOptions, error) {
	opts := cli.RunOptions{}

	opts.SourcePath, _ = cmd.Flags().GetString("source")
	if !cmd.Flags().Changed("source") && len(args) > 0 {
		opts.SourcePath = args[0]
	}
	if opts.SourcePath == "" {
		return opts, fmt.Errorf("a solution file is required (-s or argument)")
	}

	opts.PuzzlesDir, _ = cmd.Flags().GetString("puzzles")

	if puzzle, _ := cmd.Flags().GetString("puzzle"); puzzle != "" {
		hw, prog, ok := strings.Cut(puzzle, "/")
		if !ok {
			return opts, fmt.Errorf("--puzzle wants hardware/program, got %q", puzzle)
		}
		opts.HardwareSlug, opts.ProgramSlug = hw, prog
	}

	opts.Registers, _ = cmd.Flags().GetInt("registers")
	opts.Stacks, _ = cmd.Flags().GetInt("stacks")
	opts.StackSize, _ = cmd.Flags().GetInt("stack-size")
	opts.Input, _ = cmd.Flags().GetString("input")
	opts.Expected, _ = cmd.Flags().GetString("expected")

	opts.Trace, _ = cmd.Flags().GetBool("trace")
	opts.Step, _ = cmd.Flags().GetBool("step")
	opts.Graph, _ = cmd.Flags().GetBool("graph")
	opts.Speed, _ = cmd.Flags().GetInt("speed")
	if opts.Speed == 0 {
		opts.Speed = 1
	}

	level, err := loggerLevel(cmd)
	if err != nil {
		return opts, err
	}
	opts.Debug = level <= slog.LevelDebug

	return opts, nil
}
