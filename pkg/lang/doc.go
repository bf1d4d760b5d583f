// Package lang implements the cog assembly language: parsing, validation,
// compilation to a delabeled instruction list, and a steppable machine that
// executes compiled programs against a hardware and program specification.
//
// The package is self contained. Callers compile once per source revision
// and then drive the returned Machine one instruction at a time or to
// completion. Machines mutate in place; every accessor returns copies so a
// snapshot taken between steps stays stable.
package lang
