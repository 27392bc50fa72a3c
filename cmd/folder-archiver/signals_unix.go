//go:build !windows

package main

import (
	"os"
	"syscall"
)

// runNowSignals queue an immediate backup while run is active.
var runNowSignals = []os.Signal{syscall.SIGUSR1}
