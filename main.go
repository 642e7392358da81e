// Package main provides the zombielinks CLI entrypoint.
package main

import (
	"os"

	"github.com/lukemcguire/zombielinks/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
