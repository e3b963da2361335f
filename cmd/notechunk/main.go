// Command notechunk runs the chunking pipeline and the similarity matcher
// offline, against files on disk.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
