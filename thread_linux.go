//go:build linux

package main

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// pinCaptureThread dedicates the calling goroutine's OS thread to capture.
// cpu >= 0 restricts the thread to that CPU; nice != 0 changes its
// scheduling priority (negative values need CAP_SYS_NICE). Failures to tune
// the thread are logged, not fatal. The thread stays locked so that a
// modified thread is discarded when the goroutine exits.
func pinCaptureThread(cpu, nice int, log *zap.Logger) {
	runtime.LockOSThread()

	if cpu >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(cpu)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			log.Warn("could not pin capture thread", zap.Int("cpu", cpu), zap.Error(err))
		} else {
			log.Debug("capture thread pinned", zap.Int("cpu", cpu))
		}
	}
	if nice != 0 {
		tid := unix.Gettid()
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, nice); err != nil {
			log.Warn("could not change capture thread priority", zap.Int("nice", nice), zap.Error(err))
		} else {
			log.Debug("capture thread priority set", zap.Int("tid", tid), zap.Int("nice", nice))
		}
	}
}
