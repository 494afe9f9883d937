package main

import (
	"fmt"
	"os"

	"github.com/vocalize/fluency-pipeline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vocalize:", err)
		os.Exit(1)
	}
}
