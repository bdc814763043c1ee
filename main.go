package main

import (
	"os"

	"github.com/Subham15-Dutta/roadresq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
