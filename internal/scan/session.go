// Package scan turns normalized quote snapshots into scored,
// classified watchlist results.
package scan

import (
	"time"

	"github.com/rakaar/agent-cli-stock/internal/common"
)

// NSE regular trading window, IST, inclusive at both ends.
const (
	sessionOpenSeconds  = 9*3600 + 15*60  // 09:15:00
	sessionCloseSeconds = 15*3600 + 30*60 // 15:30:00
)

// SessionLiveAt reports whether the given instant falls inside the
// regular trading window. Weekends and exchange holidays are not
// modelled; off-session polling simply classifies everything WATCH.
func SessionLiveAt(t time.Time) bool {
	ist := t.In(common.ISTLocation())
	secs := ist.Hour()*3600 + ist.Minute()*60 + ist.Second()
	return secs >= sessionOpenSeconds && secs <= sessionCloseSeconds
}

// SessionLive reports liveness for the current instant.
func SessionLive() bool {
	return SessionLiveAt(time.Now())
}
