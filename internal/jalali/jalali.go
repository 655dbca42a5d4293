// file: internal/jalali/jalali.go
// version: 1.0.0
// guid: 2e7b4d9a-6c1f-4e8b-a3d5-9f2c7b4e6a1d

package jalali

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Persian month names, 1-indexed.
var months = map[string]int{
	"فروردین":  1,
	"اردیبهشت": 2,
	"خرداد":    3,
	"تیر":      4,
	"مرداد":    5,
	"شهریور":   6,
	"مهر":      7,
	"آبان":     8,
	"آذر":      9,
	"دی":       10,
	"بهمن":     11,
	"اسفند":    12,
}

const monthAlternation = "فروردین|اردیبهشت|خرداد|تیر|مرداد|شهریور|مهر|آبان|آذر|دی|بهمن|اسفند"

var (
	reFullDate  = regexp.MustCompile(`([۰-۹]+)\s+(` + monthAlternation + `)\s+([۰-۹]{4})`)
	reMonthYear = regexp.MustCompile(`(` + monthAlternation + `)\s+([۰-۹]{4})`)
)

var persianDigits = []rune("۰۱۲۳۴۵۶۷۸۹")

// PersianToInt converts a Persian numeral string: "۱۲۳" -> 123.
func PersianToInt(text string) (int, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		mapped := r
		for i, p := range persianDigits {
			if r == p {
				mapped = rune('0' + i)
				break
			}
		}
		b.WriteRune(mapped)
	}
	return strconv.Atoi(b.String())
}

// ToGregorian converts a Jalali (Solar Hijri) date to Gregorian, using
// the Julian Day Number algorithm.
func ToGregorian(jy, jm, jd int) (time.Time, error) {
	if jm < 1 || jm > 12 || jd < 1 || jd > 31 {
		return time.Time{}, fmt.Errorf("invalid jalali date %d-%d-%d", jy, jm, jd)
	}

	jy1 := jy - 979
	jm1 := jm - 1
	jd1 := jd - 1

	jDayNo := 365*jy1 + (jy1/33)*8 + (jy1%33+3)/4
	for i := 0; i < jm1; i++ {
		if i < 6 {
			jDayNo += 31
		} else {
			jDayNo += 30
		}
	}
	jDayNo += jd1

	gDayNo := jDayNo + 79

	gy := 1600 + 400*(gDayNo/146097)
	gDayNo %= 146097

	if gDayNo >= 36525 {
		gDayNo--
		gy += 100 * (gDayNo / 36524)
		gDayNo %= 36524
		if gDayNo >= 365 {
			gDayNo++
		}
	}

	gy += 4 * (gDayNo / 1461)
	gDayNo %= 1461

	if gDayNo >= 366 {
		gy += (gDayNo - 1) / 365
		gDayNo = (gDayNo - 1) % 365
	}

	leap := 0
	if (gy%4 == 0 && gy%100 != 0) || gy%400 == 0 {
		leap = 1
	}
	daysInMonth := []int{31, 28 + leap, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

	gm := 0
	for i, dim := range daysInMonth {
		if gDayNo < dim {
			gm = i + 1
			break
		}
		gDayNo -= dim
	}
	gd := gDayNo + 1

	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.UTC), nil
}

// ParseDate extracts a Jalali date from free text like "۱۸ دی ۱۴۰۴" and
// converts it to Gregorian. Month-plus-year dates resolve to the first of
// the month. Returns false when no date is found.
func ParseDate(text string) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}

	if m := reFullDate.FindStringSubmatch(text); m != nil {
		day, err1 := PersianToInt(m[1])
		year, err2 := PersianToInt(m[3])
		if err1 == nil && err2 == nil {
			if t, err := ToGregorian(year, months[m[2]], day); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	if m := reMonthYear.FindStringSubmatch(text); m != nil {
		year, err := PersianToInt(m[2])
		if err == nil {
			if t, err := ToGregorian(year, months[m[1]], 1); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}
