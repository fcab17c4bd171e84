package common

import "time"

// istLocation is the exchange-local timezone. NSE publishes all
// timestamps in IST and the trading session window is defined in IST.
var istLocation = loadIST()

func loadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// UTC+5:30, no DST
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// ISTLocation returns the exchange-local timezone.
func ISTLocation() *time.Location {
	return istLocation
}

// NowIST returns the current time in the exchange-local timezone.
func NowIST() time.Time {
	return time.Now().In(istLocation)
}
