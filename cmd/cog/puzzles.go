package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/internal/cli"
	"github.com/cogvm/cog/internal/presentation/tui"
)

var puzzlesCmd = &cobra.Command{
	Use:   "puzzles",
	Short: "Browse the puzzle catalog",
	Long:  `List the puzzle boards, or show one board with its programs and notes.`,
}

var puzzlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all puzzle boards",
	Run: func(cmd *cobra.Command, args []string) {
		src, err := openSource(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		boards, err := src.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing boards: %v\n", err)
			os.Exit(1)
		}

		if len(boards) == 0 {
			fmt.Println("No puzzle boards found.")
			return
		}

		for _, hw := range boards {
			fmt.Printf("%-18s %s\n", hw.Slug, hw.Name)
			for _, p := range hw.Programs {
				fmt.Printf("  %s/%s  %s\n", hw.Slug, p.Slug, p.Name)
			}
		}
	},
}

var puzzlesShowCmd = &cobra.Command{
	Use:   "show <hardware | hardware/program>",
	Short: "Show one board, or one program on it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		src, err := openSource(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if hwSlug, progSlug, ok := strings.Cut(args[0], "/"); ok {
			err = showProgram(cmd, src, hwSlug, progSlug)
		} else {
			err = showBoard(cmd, src, args[0])
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(puzzlesCmd)
	puzzlesCmd.AddCommand(puzzlesListCmd)
	puzzlesCmd.AddCommand(puzzlesShowCmd)
}

func openSource(cmd *cobra.Command) (catalog.Source, error) {
	dir, _ := cmd.Flags().GetString("puzzles")
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	return cli.OpenSource(dir, logger)
}

func showBoard(cmd *cobra.Command, src catalog.Source, slug string) error {
	hw, err := src.Hardware(cmd.Context(), slug)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", hw.Name, hw.Slug)
	fmt.Printf("  registers: %d  stacks: %d  stack depth: %d\n",
		hw.Spec.NumRegisters, hw.Spec.NumStacks, hw.Spec.MaxStackLength)

	if hw.Notes != "" {
		fmt.Print(renderMarkdown(hw.Notes))
	}

	fmt.Println("Programs:")
	for _, p := range hw.Programs {
		fmt.Printf("  %s/%s  %s\n", hw.Slug, p.Slug, p.Name)
	}
	return nil
}

func showProgram(cmd *cobra.Command, src catalog.Source, hwSlug, progSlug string) error {
	hw, prog, err := catalog.FindProgram(cmd.Context(), src, hwSlug, progSlug)
	if err != nil {
		return err
	}

	fmt.Printf("%s on %s\n", prog.Name, hw.Name)
	if prog.Description != "" {
		fmt.Print(renderMarkdown(prog.Description))
	}
	fmt.Printf("  input:    %v\n", prog.Input)
	fmt.Printf("  expected: %v\n", prog.ExpectedOutput)
	return nil
}

// renderMarkdown renders board notes with glamour when stdout is a
// terminal, and passes the raw text through otherwise.
func renderMarkdown(text string) string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if out, err := tui.NewRenderer()(text); err == nil {
			return out
		}
	}
	return text + "\n"
}
