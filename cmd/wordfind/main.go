// Package main provides the entry point for the wordfind CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/word-finder/cmd/wordfind/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
