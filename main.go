package main

import (
	"os"

	"github.com/flowdeck/flowdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
