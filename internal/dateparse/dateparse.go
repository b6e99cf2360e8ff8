package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"record-mapper/primitive"
	"record-mapper/utils"
)

// CenturyPivot splits two-digit years: below it they belong to the 2000s.
const CenturyPivot = 40

const (
	reYear      = `(?:19|20)[0-9]{2}`
	reYearShort = `[0-9]{2}`
	reMonth     = `(?:[0-9]|0[0-9]|1[0-2]|xx|XX|un|UN)`
	reDay       = `(?:[0-9]|[0-2][0-9]|3[0-1]|xx|XX|un|UN)`
	reHour      = `(?:[0-9]|0[0-9]|1[0-9]|2[0-3])`
	reMinSec    = `[0-5][0-9]`

	delimDate     = `[.-]`
	delimTime     = `:`
	delimDateTime = `[tT_ ]`
)

var (
	invalidShortRe = full(`(?:0|00)` + delimDate + `(?:0|00)` + delimDate + `00`)
	yearRe         = full(reYear)
	dateShortAscRe = full(reDay + delimDate + reMonth + delimDate + reYearShort)
	dateAscRe      = full(reDay + delimDate + reMonth + delimDate + reYear)
	dateDescRe     = full(reYear + delimDate + reMonth + delimDate + reDay)
	timeHMRe       = full(reHour + delimTime + reMinSec)
	timeHMSRe      = full(reHour + delimTime + reMinSec + delimTime + reMinSec)

	splitDate     = regexp.MustCompile(delimDate)
	splitTime     = regexp.MustCompile(delimTime)
	splitDateTime = regexp.MustCompile(delimDateTime)
)

func full(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)$`)
}

// ParseDate extracts a calendar date from s.
func ParseDate(s string) (primitive.Date, error) {
	var day, month, year string

	switch {
	case invalidShortRe.MatchString(s):
		return primitive.Date{}, fmt.Errorf("invalid date: %s", s)

	case yearRe.MatchString(s):
		year, month, day = s, "1", "1"

	case dateShortAscRe.MatchString(s):
		day, month, year = utils.Unpack3(splitDate.Split(s, -1))

		yy, _ := strconv.Atoi(year)
		if utils.IsInRange(0, yy, CenturyPivot-1) {
			yy += 2000
		} else {
			yy += 1900
		}

		year = strconv.Itoa(yy)

	case dateAscRe.MatchString(s):
		day, month, year = utils.Unpack3(splitDate.Split(s, -1))

	case dateDescRe.MatchString(s):
		year, month, day = utils.Unpack3(splitDate.Split(s, -1))

	default:
		// a date-time given where a date is expected: drop the time part
		parts := splitDateTime.Split(s, -1)
		if len(parts) != 2 {
			return primitive.Date{}, fmt.Errorf("unknown date format: %s", s)
		}

		date := splitDate.Split(parts[0], -1)
		if len(date) != 3 {
			return primitive.Date{}, fmt.Errorf("unknown date format: %s", s)
		}

		year, month, day = utils.Unpack3(date)
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return primitive.Date{}, fmt.Errorf("unknown date format: %s", s)
	}

	m := component(month)
	d := component(day)

	if !utils.IsInRange(1, m, 12) {
		return primitive.Date{}, fmt.Errorf("month out of range: %s", s)
	}

	date := primitive.NewDate(y, time.Month(m), d)
	if date.Day != d || int(date.Month) != m {
		return primitive.Date{}, fmt.Errorf("day out of range: %s", s)
	}

	return date, nil
}

// component reads a day or month; placeholders and zero become 1.
func component(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return 1
	}

	return n
}

// ParseTime extracts a time of day from s and returns it as an offset from midnight.
func ParseTime(s string) (time.Duration, error) {
	var hour, minute, second int

	switch {
	case timeHMSRe.MatchString(s):
		h, m, sec := utils.Unpack3(splitTime.Split(s, -1))
		hour, minute, second = atoi(h), atoi(m), atoi(sec)
	case timeHMRe.MatchString(s):
		h, m := utils.Unpack2(splitTime.Split(s, -1))
		hour, minute = atoi(h), atoi(m)
	default:
		return 0, fmt.Errorf("unknown time format: %s", s)
	}

	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second, nil
}

// ParseDateTime extracts a date and a time of day from s, interpreted in UTC.
func ParseDateTime(s string) (time.Time, error) {
	parts := splitDateTime.Split(s, -1)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("unknown datetime format: %s", s)
	}

	date, err := ParseDate(parts[0])
	if err != nil {
		return time.Time{}, err
	}

	clock, err := ParseTime(parts[1])
	if err != nil {
		return time.Time{}, err
	}

	return date.Time().Add(clock), nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
