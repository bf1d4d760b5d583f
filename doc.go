/*
Package cog is an assembly puzzle toolkit: a small register machine, an
assembler for its language, and an editing session layer built for
program-solving IDEs.

It separates the machine (Logic) from the editing workflow (Session) and
the transport (Remote), so the same engine runs embedded in a process,
behind a websocket service, or inside an agent toolchain.

# Concept

A program is written against a HardwareSpec (registers, stacks) and
solves a ProgramSpec (input values, expected output). The assembler
turns source into a Program; a Machine executes it cycle by cycle and
judges the run. The ide.Session wraps both with the editing workflow an
IDE needs: debounced compilation, stepping, auto-stepping and remote
execution with reconnect.

# Key Features

  - Deterministic Execution: the same source, hardware and input always
    produce the same run.
  - Structured Diagnostics: compile and runtime failures carry source
    spans, ready for editor squiggles.
  - Local or Remote: sessions execute in process or against the
    execution service, with the same API.
  - Snapshots: every accessor returns copies, so views taken between
    steps stay stable.

# Usage

The root package carries conveniences for the common path. Compile and
run a solution in one call:

	package main

	import (
		"fmt"
		"log"

		"github.com/cogvm/cog"
	)

	func main() {
		result, err := cog.Run("READ RX0\nWRITE RX0",
			cog.HardwareSpec{NumRegisters: 1},
			cog.ProgramSpec{Input: []int32{1}, ExpectedOutput: []int32{1}})
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(result.Successful, result.CycleCount)
	}

For the full editing workflow (debounce, stepping, events), use
cog.NewLocalSession or cog.NewRemoteSession and subscribe to session
events.
*/
package cog
