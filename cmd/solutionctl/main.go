package main

import (
	"fmt"
	"os"

	"github.com/HammerMeetNail/solutionbase/cmd/solutionctl/cli"
)

// Set via -ldflags at build time
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
