// The main package for the munro-enricher executable.
package main

import (
	"github.com/JakeFAU/munro-enricher/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
