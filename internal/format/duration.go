package format

import (
	"strconv"
	"strings"
)

// Suffixes are the unit labels appended to each component
type Suffixes struct {
	Day    string
	Hour   string
	Minute string
	Second string
}

// DefaultSuffixes renders 1d 2h 3m 4s
var DefaultSuffixes = Suffixes{Day: "d", Hour: "h", Minute: "m", Second: "s"}

// Duration renders seconds as "1d 2h 3m 4s". Leading zero units are left out
// and seconds are always shown, so 59 is "59s" and 3600 is "1h 0m 0s".
// Negative input renders as zero.
func Duration(seconds int64, sfx Suffixes) string {
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	hours := seconds % 86400 / 3600
	minutes := seconds % 3600 / 60
	secs := seconds % 60

	var b strings.Builder
	started := false
	write := func(v int64, suffix string, force bool) {
		if !started && v == 0 && !force {
			return
		}
		if started {
			b.WriteByte(' ')
		}
		started = true
		b.WriteString(strconv.FormatInt(v, 10))
		b.WriteString(suffix)
	}

	write(days, sfx.Day, false)
	write(hours, sfx.Hour, false)
	write(minutes, sfx.Minute, false)
	write(secs, sfx.Second, true)

	return b.String()
}
