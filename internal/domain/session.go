package domain

import "time"

// IST is the exchange timezone. Session arithmetic is always done in IST
// regardless of the host clock.
var IST = time.FixedZone("IST", 5*3600+1800)

// Session describes one trading day's time windows. Minutes are counted
// from midnight IST so the windows stay comparable across days.
type Session struct {
	OpenMinute      int // e.g. 9*60 + 15 for 09:15
	CloseMinute     int // e.g. 15*60 + 30 for 15:30
	CutoffMinute    int // no new entries at or after this minute
	SquareOffMinute int // force-close open intraday positions at this minute
}

// DefaultSession mirrors the NSE equity session.
func DefaultSession() Session {
	return Session{
		OpenMinute:      9*60 + 15,
		CloseMinute:     15*60 + 30,
		CutoffMinute:    14*60 + 30,
		SquareOffMinute: 15*60 + 10,
	}
}

func minuteOfDay(t time.Time) int {
	ist := t.In(IST)
	return ist.Hour()*60 + ist.Minute()
}

// IsOpen reports whether t falls inside the trading session.
func (s Session) IsOpen(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= s.OpenMinute && m < s.CloseMinute
}

// CanEnter reports whether new entries are still allowed at t.
func (s Session) CanEnter(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= s.OpenMinute && m < s.CutoffMinute
}

// PastSquareOff reports whether open intraday positions must be force-closed.
func (s Session) PastSquareOff(t time.Time) bool {
	return minuteOfDay(t) >= s.SquareOffMinute
}

// SameSession reports whether a and b belong to the same trading day.
// The VWAP accumulators reset whenever this turns false between
// consecutive candles.
func SameSession(a, b time.Time) bool {
	ai, bi := a.In(IST), b.In(IST)
	return ai.Year() == bi.Year() && ai.YearDay() == bi.YearDay()
}
