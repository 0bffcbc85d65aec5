package transport

import "time"

// SystemClock is the host-side Clock, matching the teacher's wall-clock
// idiom (time.Now().UnixMilli()) rather than a monotonic tick source.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }
