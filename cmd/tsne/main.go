// Package main provides the tsne command line tool.
//
// Usage:
//
//	tsne <command> [flags]
//
// Commands:
//
//	embed   - Embed a high-dimensional dataset into two or three dimensions
//	convert - Convert datasets between CSV and the native binary format
//	info    - Show metadata of a native dataset file
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/tsnego/cmd/tsne/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
