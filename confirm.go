package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// rateTolerance is the largest target/actual rate difference accepted
// without a decision.
const rateTolerance = 0.01

// RatePolicy decides what happens when a device cannot run at the target
// rate.
type RatePolicy string

const (
	RateContinue RatePolicy = "continue" // proceed at the device's rate
	RateAbort    RatePolicy = "abort"    // stop before capturing
	RateAsk      RatePolicy = "ask"      // prompt the operator
	RateAuto     RatePolicy = "auto"     // ask on a terminal, abort otherwise
)

// ParseRatePolicy validates a policy name.
func ParseRatePolicy(s string) (RatePolicy, error) {
	switch p := RatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RateContinue, RateAbort, RateAsk, RateAuto:
		return p, nil
	}
	return "", fmt.Errorf("unknown rate policy: %s (want continue, abort, ask or auto)", s)
}

// RateCheck applies a RatePolicy. In and Out are used for prompting.
type RateCheck struct {
	Policy RatePolicy
	In     io.Reader
	Out    io.Writer
}

// Check returns nil when the rates match or the policy accepts the
// mismatch, and ErrRateRejected otherwise.
func (c RateCheck) Check(target, actual float64) error {
	if math.Abs(target-actual) <= rateTolerance {
		return nil
	}

	policy := c.Policy
	if policy == RateAuto {
		policy = RateAbort
		if f, ok := c.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			policy = RateAsk
		}
	}

	switch policy {
	case RateContinue:
		return nil
	case RateAsk:
		ok, err := c.ask(target, actual)
		if err != nil {
			return fmt.Errorf("rate confirmation: %w", err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: target %g fps, device %g fps", ErrRateRejected, target, actual)
}

func (c RateCheck) ask(target, actual float64) (bool, error) {
	fmt.Fprintf(c.Out, "Actual frame rate and target frame rate are different: %g vs %g\n", target, actual)
	fmt.Fprintln(c.Out, "This usually happens when the capture device does not support the target frame rate.")
	fmt.Fprintln(c.Out, "The data you collect may be invalid unless the target frame rate is relatively small.")
	fmt.Fprintln(c.Out, "Press Y to continue with the target frame rate and check frame arrival times afterwards.")
	fmt.Fprintln(c.Out, "Press N to stop.")

	if f, ok := c.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return askKey(f)
	}
	return askLine(c.In)
}

// askKey reads single keystrokes in raw mode until Y or N.
func askKey(f *os.File) (bool, error) {
	fd := int(f.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return askLine(f)
	}
	defer term.Restore(fd, old)

	buf := make([]byte, 1)
	for {
		if _, err := f.Read(buf); err != nil {
			return false, err
		}
		if ok, decided := parseAnswer(string(buf)); decided {
			return ok, nil
		}
	}
}

// askLine reads lines until one starts with Y or N.
func askLine(r io.Reader) (bool, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ok, decided := parseAnswer(sc.Text()); decided {
			return ok, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	return false, io.ErrUnexpectedEOF
}

func parseAnswer(s string) (yes, decided bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, false
	}
	switch s[0] {
	case 'Y', 'y':
		return true, true
	case 'N', 'n':
		return false, true
	}
	return false, false
}
