package crawler

import (
	"fmt"
	"sync"
	"time"
)

// rateWindow is the number of points the request rate is computed over.
const rateWindow = 5

// Estimate is the throughput observed while a site is throttling us.
type Estimate struct {
	// Rate is completed threads per second.
	Rate float64

	// ETA is the estimated time until all threads are done.
	ETA time.Duration
}

// String formats the estimate for log output.
func (e Estimate) String() string {
	return fmt.Sprintf("%.2f req/s, ETA %s", e.Rate, FormatETA(e.ETA))
}

type ratePoint struct {
	at       time.Time
	progress int
}

// RateTracker estimates how long a scrape will take once the site starts
// answering 429. The first 429 only marks the run as rate limited; every
// later one adds a progress point, and the rate is computed over the last
// few points.
type RateTracker struct {
	mu      sync.Mutex
	limited bool
	points  []ratePoint
	now     func() time.Time
}

// NewRateTracker creates a RateTracker.
func NewRateTracker() *RateTracker {
	return &RateTracker{now: time.Now}
}

// Hit records a 429 response seen while progress of total threads were
// being processed. It returns an estimate once at least two points with
// different progress are known.
func (r *RateTracker) Hit(progress, total int) (Estimate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	point := ratePoint{at: r.now(), progress: progress}
	if !r.limited {
		r.limited = true
		r.points = []ratePoint{point}
		return Estimate{}, false
	}

	r.points = append(r.points, point)
	if len(r.points) > rateWindow {
		r.points = r.points[len(r.points)-rateWindow:]
	}

	first, last := r.points[0], r.points[len(r.points)-1]
	elapsed := last.at.Sub(first.at).Seconds()
	done := last.progress - first.progress
	if elapsed <= 0 || done <= 0 {
		return Estimate{}, false
	}

	rate := float64(done) / elapsed
	remaining := max(total-progress, 0)
	return Estimate{
		Rate: rate,
		ETA:  time.Duration(float64(remaining) / rate * float64(time.Second)),
	}, true
}

// RateLimited reports whether a 429 has been seen.
func (r *RateTracker) RateLimited() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limited
}

// FormatETA formats a duration as HH:MM:SS, truncated to whole seconds.
func FormatETA(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}
