package main

import (
	"os"

	"github.com/avivkl/matchboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
