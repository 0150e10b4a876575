package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
