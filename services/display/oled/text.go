package oled

import (
	"time"

	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/conv"
)

const absent = "--"

// line is a small append buffer for one row of text.
type line struct {
	b       []byte
	scratch [24]byte
}

func (l *line) reset() *line {
	l.b = l.b[:0]
	return l
}

func (l *line) str(s string) *line {
	l.b = append(l.b, s...)
	return l
}

func (l *line) num(n int64) *line {
	l.b = append(l.b, conv.Itoa(l.scratch[:], n)...)
	return l
}

func (l *line) deci(n int32) *line {
	l.b = append(l.b, conv.Deci(l.scratch[:], int64(n))...)
	return l
}

func (l *line) String() string { return string(l.b) }

// readingLines formats the readings view. Absent values show as "--"; the
// age is shown once the reading is older than staleAfter.
func readingLines(snap state.Snapshot, now time.Time, staleAfter time.Duration) []string {
	var l line
	r := snap.Reading
	if r == nil {
		return []string{
			l.reset().str("CO2 ").str(absent).str(" ppm").String(),
			l.reset().str("TVOC ").str(absent).str(" ppb").String(),
			l.reset().str("AQI ").str(absent).String(),
			l.reset().str("T ").str(absent).str(" RH ").str(absent).String(),
		}
	}

	out := []string{
		l.reset().str("CO2 ").num(int64(r.ECO2)).str(" ppm").String(),
		l.reset().str("TVOC ").num(int64(r.TVOC)).str(" ppb").String(),
	}
	l.reset().str("AQI ")
	switch r.Validity {
	case types.ValidityWarmup, types.ValidityInitialStartup:
		l.str("warming up")
	case types.ValidityInvalid:
		l.str(absent)
	default:
		l.num(int64(r.AQI)).str(" ").str(r.AQI.String())
	}
	out = append(out, l.String())
	out = append(out, l.reset().str("T ").deci(r.DeciCelsius).str("C RH ").deci(r.DeciRelHum).str("%").String())

	if age := snap.ReadingAge(now); staleAfter > 0 && age > staleAfter {
		out = append(out, ageLine(&l, age))
	}
	return out
}

func ageLine(l *line, age time.Duration) string {
	l.reset().str("updated ")
	switch {
	case age >= time.Hour:
		l.num(int64(age / time.Hour)).str("h")
	default:
		l.num(int64(age / time.Minute)).str("m")
	}
	return l.str(" ago").String()
}

// historyTitle labels the history view with the newest value.
func historyTitle(snap state.Snapshot) string {
	var l line
	l.str("CO2 history ")
	if n := len(snap.History); n > 0 {
		l.num(int64(snap.History[n-1]))
	} else {
		l.str(absent)
	}
	return l.String()
}

// batteryLabel formats the status next to the icon. A stale status keeps
// its last value with a "?" suffix.
func batteryLabel(b *types.BatteryStatus, stale bool) string {
	var l line
	switch {
	case b == nil:
		return absent
	case b.Charging:
		l.str("CHG")
	default:
		l.num(int64(b.Percent)).str("%")
	}
	if stale {
		l.str("?")
	}
	return l.String()
}
