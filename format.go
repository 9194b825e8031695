package main

import (
	"fmt"
	"os"
)

// statusf prints a status message to stderr unless quiet mode is set. Stdout
// is reserved for command results (links, paths, JSON).
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
