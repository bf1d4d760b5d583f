package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/loam"

	boards "github.com/cogvm/cog/internal/adapters/loam"
	"github.com/cogvm/cog/internal/catalog"
)

// Materializes the embedded puzzle set as an editable board directory.
// The generated files are the starting point for a custom catalog
// served with `cog serve --puzzles <dir>`.
func main() {
	targetDir := "examples/boards"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	// Ensure dir exists
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating starter boards in: %s\n", targetDir)

	// Init Loam (No Versioning = pure file generation)
	repo, err := loam.Init(targetDir, loam.WithVersioning(false))
	if err != nil {
		panic(err)
	}

	typedRepo := loam.NewTypedRepository[boards.Metadata](repo)
	ctx := context.TODO()

	notes := map[string]string{
		"scrapyard-one": "A single register and nothing else. Every solution starts here.",
		"workbench-two": "Two registers and a shallow stack. Enough for loops with memory.",
		"foundry-four":  "The big board: four registers, two stacks. Bring a plan.",
	}

	for _, hw := range catalog.Builtin() {
		meta := boards.Metadata{
			Slug:     hw.Slug,
			Name:     hw.Name,
			Spec:     hw.Spec,
			Programs: hw.Programs,
		}
		err = typedRepo.Save(ctx, &loam.DocumentModel[boards.Metadata]{
			ID:      hw.Slug,
			Content: notes[hw.Slug],
			Data:    meta,
		})
		check(err)
	}

	fmt.Println("Done. Verify contents in", targetDir)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
