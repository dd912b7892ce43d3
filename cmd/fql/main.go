package main

import (
	"os"

	"github.com/segmentio/action-destinations-sub030/cmd/fql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
