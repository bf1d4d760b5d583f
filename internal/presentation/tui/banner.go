package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the cog ASCII banner with the build version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Warm metal gradient.
	s1 := termenv.String("   ___ ___   __ _ ").Foreground(p.Color("#fbbf24"))
	s2 := termenv.String("  / __/ _ \\ / _` |").Foreground(p.Color("#f59e0b"))
	s3 := termenv.String(" | (_| (_) | (_| |").Foreground(p.Color("#f97316"))
	s4 := termenv.String("  \\___\\___/ \\__, |").Foreground(p.Color("#ea580c"))
	s5 := termenv.String("            |___/ ").Foreground(p.Color("#dc2626"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Print(s5)
	fmt.Println(termenv.String("  " + version).Foreground(p.Color("#9ca3af")))
	fmt.Println()
}
