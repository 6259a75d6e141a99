//go:build ignore

// genman generates the framepacer man page.
// Usage: go run cmd/genman/main.go > framepacer.1
package main

import (
	"fmt"
	"os"
)

func main() {
	// Use a fixed date for reproducible builds/CI
	date := "October 2026"

	manpage := fmt.Sprintf(`.TH FRAMEPACER 1 "%s" "framepacer 0.2.0" "User Commands"
.SH NAME
framepacer \- capture frames on an evenly paced schedule
.SH SYNOPSIS
.B framepacer
[\fIflags\fR] [\fIsettings.json\fR]
.SH DESCRIPTION
.B framepacer
triggers a capture device at a fixed frame rate, hands each frame to a
background writer through a bounded ring buffer, and reports how far every
trigger deviated from its ideal time.
.PP
Frame \fIi\fR is due at \fIi\fR times the frame interval after the start of
the session. The capture thread sleeps until a rough margin before that
time, then busy-polls the clock until a fine margin before it. Deadlines are
never rebased, so one late frame does not shift the ones after it.
.PP
When the session has more frames than the buffer holds, a writer drains the
buffer while capturing. Otherwise all frames are kept in memory and written
after the capture. If the writer falls behind and the buffer fills, the
session fails.
.SH OPTIONS
.TP
.BR \-C ", " \-\-config " \fIfile\fR"
JSON settings file. May also be given as the only positional argument.
.TP
.B \-\-series \fIname\fR
Series name, prefix of every frame file.
.TP
.BR \-o ", " \-\-output " \fIdir\fR"
Folder for frames, video and reports.
.TP
.BR \-b ", " \-\-buffer " \fIn\fR"
Frame buffer length. One slot is always kept free.
.TP
.B \-\-device \fIkind\fR
Capture device: \fBscreen\fR or \fBsynthetic\fR.
.TP
.B \-\-camera \fIid\fR
Device id.
.TP
.B \-\-height \fIpixels\fR, \-\-width \fIpixels\fR
Requested frame size.
.TP
.BR \-f ", " \-\-fps " \fIrate\fR"
Target frame rate. Example: \fB\-\-fps 30000/1001\fR
.TP
.BR \-t ", " \-\-duration " \fIseconds\fR"
Recording time.
.TP
.B \-\-rough\-margin \fIduration\fR
Stop sleeping this long before each frame. Example: \fB\-\-rough\-margin 20ms\fR
.TP
.B \-\-fine\-margin \fIduration\fR
Stop spinning this long before each frame. Example: \fB\-\-fine\-margin 50us\fR
.TP
.BR \-p ", " \-\-profile " \fIname\fR"
Use a preset margin profile. See \fBPROFILES\fR section.
.TP
.B \-\-warmup \fIn\fR
Frames captured and discarded before timing starts.
.TP
.B \-\-video
Export the frames as a Motion-JPEG AVI.
.TP
.B \-\-report\-prefix
Prefix report file names with the series name (default true).
.TP
.B \-\-on\-rate\-mismatch \fIpolicy\fR
What to do when the device cannot run at the target rate:
\fBcontinue\fR, \fBabort\fR, \fBask\fR, or \fBauto\fR (ask on a terminal,
abort otherwise).
.TP
.B \-\-cpu \fIn\fR
Pin the capture thread to CPU \fIn\fR (Linux).
.TP
.B \-\-nice \fIn\fR
Capture thread priority adjustment (Linux).
.TP
.B \-\-metrics\-addr \fIaddr\fR
Serve Prometheus metrics on \fIaddr\fR during the session.
.TP
.B \-\-metrics\-file \fIpath\fR
Write Prometheus metrics to \fIpath\fR at the end of the session.
.TP
.B \-\-log\-level \fIlevel\fR, \-\-log\-json
Logging verbosity and format.
.TP
.BR \-L ", " \-\-list\-profiles
List margin profiles.
.TP
.BR \-h ", " \-\-help
Show help message.
.TP
.BR \-v ", " \-\-version
Show version information.
.SH PROFILES
.TP
.B default
Desktop OS, typical CPU (20ms rough, 50us fine)
.TP
.B fast\-cpu
Modern desktop CPU, idle system (15ms rough, 20us fine)
.TP
.B slow\-cpu
Older or heavily loaded CPU (25ms rough, 200us fine)
.TP
.B coarse\-timer
OS with 15.6ms default timer resolution (32ms rough, 50us fine)
.TP
.B hrtimer
Kernel with high-resolution timers (2ms rough, 50us fine)
.TP
.B low\-power
Single-board computer or power-saving governor (30ms rough, 500us fine)
.SH FILES
.TP
.I <output>/<series><id>.png
One file per frame, id zero-padded to at least three digits.
.TP
.I <output>/<series>_time_stamp_report.tab
Grab and retrieval time of every frame, in seconds.
.TP
.I <output>/<series>_time_deviation_report.tab
Per-frame deviation from the ideal time, with the total and average
absolute deviation.
.TP
.I <output>/<series>.avi
Optional video export.
.SH EXAMPLES
Capture three seconds at 15 fps with the defaults:
.PP
.RS
.nf
framepacer capture_settings.json
.fi
.RE
.PP
Use high-resolution timer margins:
.PP
.RS
.nf
framepacer \-\-fps 30 \-\-duration 10 \-\-profile hrtimer \-o out
.fi
.RE
.PP
Dry run without hardware:
.PP
.RS
.nf
framepacer \-\-device synthetic \-\-fps 30000/1001 \-t 5
.fi
.RE
.SH EXIT STATUS
0 on success, 2 if the frame rate mismatch was rejected, 1 on any other
error (including a buffer overflow).
.SH NOTES
.IP \(bu 2
The capture thread busy-polls for up to the rough margin before every frame
and keeps one CPU core busy while it does.
.IP \(bu 2
SIGINT and SIGTERM stop the session at the next frame boundary.
.SH SEE ALSO
.BR ffmpeg (1)
`, date)

	fmt.Fprint(os.Stdout, manpage)
}
