package utils

import (
	"fmt"
	"time"
)

// NowNano returns the current time as nanoseconds since Unix epoch.
func NowNano() int64 {
	return time.Now().UnixNano()
}

// ElapsedSeconds returns (to − from) in seconds; zero if either stamp is unset.
func ElapsedSeconds(from, to int64) float64 {
	if from == 0 || to == 0 {
		return 0
	}
	return float64(to-from) / float64(time.Second)
}

// SessionName returns a unique session directory name:
//
//	<prefix>_YYYYMMDD_HHMMSS
func SessionName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, time.Now().Format("20060102_150405"))
}
