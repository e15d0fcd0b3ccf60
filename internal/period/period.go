// Package period handles the 11-digit date-coded period keys:
// YYYYMMDD followed by a 3-digit sequence that widens to 4 digits once a
// day passes 999 draws. Callers outside this package treat the keys as
// opaque ordered int64s.
package period

import (
	"fmt"
	"time"
)

// wideKeyMin is the smallest key whose sequence part is 4 digits.
const wideKeyMin = 100000000000

// First returns the first period key of the day containing t.
func First(t time.Time) int64 {
	return datePrefix(t)*1000 + 1
}

// Next returns the key following cur, rolling to the next day's first key
// when cur belongs to an earlier day than t. Sequence 999 widens to 1000.
func Next(cur int64, t time.Time) int64 {
	if cur <= 0 || DateOf(cur) != datePrefix(t) {
		return First(t)
	}
	if cur < wideKeyMin && Sequence(cur) == 999 {
		return DateOf(cur)*10000 + 1000
	}
	return cur + 1
}

// DateOf extracts the YYYYMMDD prefix from a period key.
func DateOf(p int64) int64 {
	if p >= wideKeyMin {
		return p / 10000
	}
	return p / 1000
}

// Sequence extracts the per-day sequence number from a period key.
func Sequence(p int64) int {
	if p >= wideKeyMin {
		return int(p % 10000)
	}
	return int(p % 1000)
}

// Valid reports whether p looks like a well-formed period key.
func Valid(p int64) bool {
	d := DateOf(p)
	if d < 19700101 || d > 99991231 {
		return false
	}
	if _, err := time.Parse("20060102", fmt.Sprintf("%08d", d)); err != nil {
		return false
	}
	seq := Sequence(p)
	if p >= wideKeyMin {
		return seq >= 1000
	}
	return seq >= 1
}

func datePrefix(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}
