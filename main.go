package main

import (
	"os"

	"github.com/kyleking/schemaflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
