//go:build windows

package main

import "os"

var runNowSignals []os.Signal
