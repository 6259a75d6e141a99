//go:build !linux

package main

import (
	"runtime"

	"go.uber.org/zap"
)

// pinCaptureThread locks the capture goroutine to its OS thread. CPU
// affinity and priority are only supported on Linux.
func pinCaptureThread(cpu, nice int, log *zap.Logger) {
	runtime.LockOSThread()
	if cpu >= 0 || nice != 0 {
		log.Warn("capture thread tuning is not supported on this platform", zap.Int("cpu", cpu), zap.Int("nice", nice))
	}
}
