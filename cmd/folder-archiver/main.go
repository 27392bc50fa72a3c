// Command folder-archiver periodically archives a folder into timestamped
// zip snapshots and keeps only the newest ones.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
