package fecha

import (
	"strings"
	"time"
)

// Layout is the format used for every recorded date: DD/MM/YYYY, HH:mm:ss.
const Layout = "02/01/2006, 15:04:05"

// Placeholder marks a record without a usable date.
const Placeholder = "---"

var parseLayouts = []string{
	"2/1/2006, 15:04:05",
	"2/1/2006 15:04:05",
	"2/1/2006, 15:04",
	"2/1/2006",
}

// Location is the wall clock used to stamp new records.
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		return time.FixedZone("America/Bogota", -5*60*60)
	}
	return loc
}

// Format renders t in the recorded-date layout using the Bogotá wall clock.
func Format(t time.Time) string {
	return t.In(Location).Format(Layout)
}

// Now returns the current recorded-date string.
func Now() string {
	return Format(time.Now())
}

// Parse reads DD/MM/YYYY[, HH:mm:ss] text. Placeholders and unparseable
// values return false.
func Parse(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" || value == Placeholder {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, value, Location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Timestamp returns the Unix milliseconds of raw, or 0 when it cannot be parsed.
func Timestamp(raw string) int64 {
	t, ok := Parse(raw)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}
