// Package main provides the entry point for the sumtree checksum manifest CLI.
package main

import (
	"os"
)

func main() {
	os.Exit(exitCode(Execute()))
}
