package main

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferFull is returned when the capture loop finds no free slot.
	// The session cannot recover from it without blocking the producer.
	ErrBufferFull = errors.New("frame buffer is full")

	// ErrRateRejected is returned when the device runs at a rate other than
	// the requested one and the rate policy declined to continue.
	ErrRateRejected = errors.New("device frame rate rejected")
)

// DeviceError reports a failed capture device operation.
type DeviceError struct {
	Op  string // open, configure, trigger, materialize
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ParamError reports a session parameter that cannot be used.
type ParamError struct {
	Name   string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Name, e.Reason)
}
