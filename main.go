package main

import (
	"os"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
