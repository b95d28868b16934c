package services

import "time"

// copyBufferSize is the chunk size for both downloads and device copies.
const copyBufferSize = 64 * 1024

// transferSpeed is the average rate since the operation started, total
// bytes over total elapsed time. Not a sliding window.
func transferSpeed(transferred uint64, start time.Time) float64 {
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(transferred) / elapsed
}

// etaSeconds estimates remaining time from the instantaneous speed.
// Returns -1 when the estimate is not computable.
func etaSeconds(total, transferred uint64, speedBPS float64) int64 {
	if speedBPS <= 0 || total == 0 || transferred > total {
		return -1
	}
	return int64(float64(total-transferred) / speedBPS)
}
