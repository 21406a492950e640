// Command solarctl runs savings projections, inspects stored submissions and
// manages storage encryption from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(promptPassword).Execute(); err != nil {
		os.Exit(1)
	}
}
