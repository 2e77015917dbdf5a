// Command assetmapctl talks to a running assetmap server: it renders the
// marker layer for a filter and uploads CSV imports.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
