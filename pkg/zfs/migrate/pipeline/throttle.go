// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"io"
	"time"
)

// throttledWriter is the reserved-but-inactive rate-throttle hook of
// spec.md §9: when bytesPerSec is 0 it is a pure passthrough: when set,
// it sleeps proportionally to bytes written so the long-run rate stays
// near the configured ceiling. No example in the corpus wires a token-
// bucket limiter library for a single outbound stream, so this is a
// small hand-rolled sleep-based limiter rather than a new dependency -
// see DESIGN.md.
type throttledWriter struct {
	w           io.Writer
	bytesPerSec int64
}

func newThrottledWriter(w io.Writer, bytesPerSec int64) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}
	return &throttledWriter{w: w, bytesPerSec: bytesPerSec}
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 && t.bytesPerSec > 0 {
		delay := time.Duration(float64(n) / float64(t.bytesPerSec) * float64(time.Second))
		time.Sleep(delay)
	}
	return n, err
}
