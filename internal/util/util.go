package util

import "time"

// Sleep blocks for t without leaking a timer.
func Sleep(t time.Duration) {
	timer := time.NewTimer(t)
	defer timer.Stop()
	<-timer.C
}
