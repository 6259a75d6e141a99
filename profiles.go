package main

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// MarginProfile is a preset pair of scheduler margins for a class of host.
type MarginProfile struct {
	RoughMargin time.Duration
	FineMargin  time.Duration
	Description string
}

// profiles defines margin presets. Hosts with coarse sleep granularity need a
// large rough margin; slow CPUs need a large fine margin.
var profiles = map[string]MarginProfile{
	"default": {
		RoughMargin: 20 * time.Millisecond,
		FineMargin:  50 * time.Microsecond,
		Description: "desktop OS, typical CPU",
	},
	"fast-cpu": {
		RoughMargin: 15 * time.Millisecond,
		FineMargin:  20 * time.Microsecond,
		Description: "modern desktop CPU, idle system",
	},
	"slow-cpu": {
		RoughMargin: 25 * time.Millisecond,
		FineMargin:  200 * time.Microsecond,
		Description: "older or heavily loaded CPU",
	},
	"coarse-timer": {
		RoughMargin: 32 * time.Millisecond, // two 15.6ms timer ticks
		FineMargin:  50 * time.Microsecond,
		Description: "OS with 15.6ms default timer resolution",
	},
	"hrtimer": {
		RoughMargin: 2 * time.Millisecond,
		FineMargin:  50 * time.Microsecond,
		Description: "kernel with high-resolution timers (Linux)",
	},
	"low-power": {
		RoughMargin: 30 * time.Millisecond,
		FineMargin:  500 * time.Microsecond,
		Description: "single-board computer or power-saving governor",
	},
}

// printProfiles lists the margin profiles in name order.
func printProfiles(w io.Writer) {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Margin profiles:")
	for _, name := range names {
		p := profiles[name]
		fmt.Fprintf(w, "  %-13s rough %-6v fine %-7v %s\n", name, p.RoughMargin, p.FineMargin, p.Description)
	}
}
