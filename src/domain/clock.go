package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var (
	clockTimePattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
	monthDayPattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
)

var (
	ErrInvalidHour      = errors.New("the hour must be between 0 and 23 inclusive")
	ErrInvalidMinute    = errors.New("the minute must be between 0 and 59 inclusive")
	ErrInvalidClockTime = errors.New("invalid time of day, expected HH:MM")
	ErrInvalidWeekdays  = errors.New("invalid days, use a string like 'MTWRFSU' or 'MTWRF'")
	ErrInvalidGrace     = fmt.Errorf("grace period must be between 0 and %d minutes", MaxGracePeriod)
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidDay       = errors.New("day must be between 1 and 31")
)

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 {
		return ClockTime{}, ErrInvalidHour
	}
	if minute < 0 || minute > 59 {
		return ClockTime{}, ErrInvalidMinute
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// ParseClockTime accepts "H:MM" or "HH:MM" and nothing else.
func ParseClockTime(s string) (ClockTime, error) {
	hour, minute, ok := parsePair(clockTimePattern, s)
	if !ok {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return NewClockTime(hour, minute)
}

func parsePair(pattern *regexp.Regexp, s string) (int, int, bool) {
	match := pattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, 0, false
	}
	first, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, false
	}
	second, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, false
	}
	return first, second, true
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// AddMinutes wraps around midnight.
func (c ClockTime) AddMinutes(n int) ClockTime {
	total := ((c.minutes()+n)%minutesPerDay + minutesPerDay) % minutesPerDay
	return ClockTime{Hour: total / 60, Minute: total % 60}
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) seconds() int {
	return c.minutes() * 60
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClockTime, data)
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// secondOfDay returns t's offset from midnight in seconds.
func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// between reports whether target lies in [start, end], wrapping past midnight
// when start is after end.
func between(target, start, end int) bool {
	if start <= end {
		return start <= target && target <= end
	}
	return target >= start || target <= end
}

const weekdayCodes = "MTWRFSU"

// NoQuietDays is the keyword commands accept for the empty day set.
const NoQuietDays = "none"

// Weekdays is a set of day codes: M T W R F S U, Monday first. The empty set
// means quiet time never applies.
type Weekdays string

func ParseWeekdays(s string) (Weekdays, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == strings.ToUpper(NoQuietDays) {
		return "", nil
	}
	for _, r := range s {
		if !strings.ContainsRune(weekdayCodes, r) {
			return "", ErrInvalidWeekdays
		}
	}

	var b strings.Builder
	for _, r := range weekdayCodes {
		if strings.ContainsRune(s, r) {
			b.WriteRune(r)
		}
	}
	return Weekdays(b.String()), nil
}

func WeekdayCode(day time.Weekday) byte {
	// time.Sunday is 0, the code table starts on Monday.
	return weekdayCodes[(int(day)+6)%7]
}

func (w Weekdays) Contains(day time.Weekday) bool {
	return strings.IndexByte(string(w), WeekdayCode(day)) >= 0
}

func (w Weekdays) String() string {
	if w == "" {
		return NoQuietDays
	}
	return string(w)
}

func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWeekdays, data)
	}
	parsed, err := ParseWeekdays(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// MonthDay identifies a yearly recurring date.
type MonthDay struct {
	Month time.Month
	Day   int
}

func NewMonthDay(month, day int) (MonthDay, error) {
	if month < 1 || month > 12 {
		return MonthDay{}, ErrInvalidMonth
	}
	if day < 1 || day > 31 {
		return MonthDay{}, ErrInvalidDay
	}
	return MonthDay{Month: time.Month(month), Day: day}, nil
}

func (m MonthDay) Matches(t time.Time) bool {
	return t.Month() == m.Month && t.Day() == m.Day
}

func (m MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(m.Month), m.Day)
}

func (m MonthDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MonthDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	month, day, ok := parsePair(monthDayPattern, s)
	if !ok {
		return fmt.Errorf("invalid holiday %q, expected MM-DD", s)
	}
	parsed, err := NewMonthDay(month, day)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
