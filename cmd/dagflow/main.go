// Command dagflow is the CLI surface for the engine: block/dag
// discovery and single-run execution (spec.md §6).
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
