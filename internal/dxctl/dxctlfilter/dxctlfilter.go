// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxctlfilter provides the user filter, date range, and aggregation
// period that scope every report.
package dxctlfilter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bufdev/dxctl/internal/standard/xtime"
)

var (
	// ErrEmptyUserSet is returned when a user set filter has no users.
	ErrEmptyUserSet = errors.New("user set filter requires at least one user")
	// ErrEmptyDateRange is returned when a date range or date set contains no dates.
	ErrEmptyDateRange = errors.New("date range is empty")
)

// InvalidFilterTypeError is returned when a user filter value is neither a string nor a list of strings.
type InvalidFilterTypeError struct {
	// Value is the rejected value.
	Value any
}

func (e *InvalidFilterTypeError) Error() string {
	return fmt.Sprintf("user filter must be a string or a list of strings, got %T", e.Value)
}

// UserFilter restricts a report to all users, a single user, or a set of users.
//
// The zero value matches all users. A UserFilter is immutable.
type UserFilter struct {
	userIDs []string
}

// AllUsers returns a filter matching every user.
func AllUsers() UserFilter {
	return UserFilter{}
}

// SingleUser returns a filter matching exactly one user.
func SingleUser(userID string) UserFilter {
	return UserFilter{userIDs: []string{userID}}
}

// UserSet returns a filter matching any of the given users.
//
// Duplicate ids are dropped. A set with a single id is equivalent to SingleUser.
// Returns ErrEmptyUserSet if no ids are given.
func UserSet(userIDs []string) (UserFilter, error) {
	deduplicated := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if !slices.Contains(deduplicated, userID) {
			deduplicated = append(deduplicated, userID)
		}
	}
	if len(deduplicated) == 0 {
		return UserFilter{}, ErrEmptyUserSet
	}
	return UserFilter{userIDs: deduplicated}, nil
}

// FilterFromValue builds a filter from a decoded configuration or flag value.
//
// nil matches all users, a string is a single user, and a list of strings is a
// user set. Anything else returns an *InvalidFilterTypeError.
func FilterFromValue(value any) (UserFilter, error) {
	switch v := value.(type) {
	case nil:
		return AllUsers(), nil
	case string:
		if v == "" {
			return AllUsers(), nil
		}
		return SingleUser(v), nil
	case []string:
		return UserSet(v)
	case []any:
		userIDs := make([]string, 0, len(v))
		for _, element := range v {
			userID, ok := element.(string)
			if !ok {
				return UserFilter{}, &InvalidFilterTypeError{Value: element}
			}
			userIDs = append(userIDs, userID)
		}
		return UserSet(userIDs)
	default:
		return UserFilter{}, &InvalidFilterTypeError{Value: value}
	}
}

// IsAll returns true if the filter matches every user.
func (f UserFilter) IsAll() bool {
	return len(f.userIDs) == 0
}

// UserIDs returns a copy of the user ids in the filter, or nil for all users.
func (f UserFilter) UserIDs() []string {
	return slices.Clone(f.userIDs)
}

// Predicate returns a SQL predicate on column and its bound values.
//
// The predicate uses "?" placeholders. A user set binds a single slice value
// for "IN ?", which the store expands to one parameter per user.
func (f UserFilter) Predicate(column string) (string, []any) {
	switch len(f.userIDs) {
	case 0:
		return column + " IS NOT NULL", nil
	case 1:
		return column + " = ?", []any{f.userIDs[0]}
	default:
		return column + " IN ?", []any{slices.Clone(f.userIDs)}
	}
}

// String returns a human-readable description of the filter.
func (f UserFilter) String() string {
	switch len(f.userIDs) {
	case 0:
		return "all users"
	case 1:
		return f.userIDs[0]
	default:
		return strings.Join(f.userIDs, ",")
	}
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	// Start is the first date in the range.
	Start xtime.Date
	// End is the last date in the range.
	End xtime.Date
}

// NewDateRange returns a new DateRange.
//
// A zero end defaults to today in UTC. Returns ErrEmptyDateRange if end is before start.
func NewDateRange(start xtime.Date, end xtime.Date) (DateRange, error) {
	if !start.IsValid() {
		return DateRange{}, fmt.Errorf("invalid start date %s", start)
	}
	if end.IsZero() {
		end = xtime.Today(time.UTC)
	}
	if !end.IsValid() {
		return DateRange{}, fmt.Errorf("invalid end date %s", end)
	}
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrEmptyDateRange, end, start)
	}
	return DateRange{Start: start, End: end}, nil
}

// Dates returns every date in the range in ascending order.
func (r DateRange) Dates() []xtime.Date {
	return xtime.DatesBetween(r.Start, r.End)
}

// Bounds returns the half-open time interval [start, end+1 day) covering the range in UTC.
func (r DateRange) Bounds() (time.Time, time.Time) {
	return r.Start.In(time.UTC), r.End.AddDays(1).In(time.UTC)
}

// String returns the range as "start..end".
func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Period is an aggregation period for time-bucketed reports.
//
// The zero value is a Monday-anchored week.
type Period struct {
	daily bool
	// anchor is the weekday that labels a weekly bucket, offset by one so
	// that the zero value is Monday.
	anchor time.Weekday
}

// DefaultPeriod is the default aggregation period, Monday-anchored weeks.
var DefaultPeriod = Period{}

// weekdayCodes maps weekly period suffixes to weekdays.
var weekdayCodes = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// ParsePeriod parses a period.
//
// "D" is daily. "W" or "W-MON" through "W-SUN" are weeks anchored on the
// given weekday. The empty string is the default period.
func ParsePeriod(s string) (Period, error) {
	switch s = strings.ToUpper(strings.TrimSpace(s)); s {
	case "":
		return DefaultPeriod, nil
	case "D":
		return Period{daily: true}, nil
	case "W":
		return DefaultPeriod, nil
	}
	code, ok := strings.CutPrefix(s, "W-")
	if !ok {
		return Period{}, fmt.Errorf("unknown period %q, must be D or W-<DAY>", s)
	}
	weekday, ok := weekdayCodes[code]
	if !ok {
		return Period{}, fmt.Errorf("unknown period %q, must be D or W-<DAY>", s)
	}
	return Period{anchor: (weekday + 6) % 7}, nil
}

// Label returns the bucket label for a date.
//
// Daily buckets are labelled by the date itself. Weekly buckets are
// left-closed on the anchor weekday and labelled by their right edge, the
// next anchor weekday strictly after the date.
func (p Period) Label(date xtime.Date) xtime.Date {
	if p.daily {
		return date
	}
	daysSinceAnchor := (int(date.Weekday()) - int(p.weekday()) + 7) % 7
	return date.AddDays(7 - daysSinceAnchor)
}

// String returns the period in the form accepted by ParsePeriod.
func (p Period) String() string {
	if p.daily {
		return "D"
	}
	weekday := p.weekday()
	for code, codeWeekday := range weekdayCodes {
		if codeWeekday == weekday {
			return "W-" + code
		}
	}
	return "W-MON"
}

// *** PRIVATE ***

func (p Period) weekday() time.Weekday {
	return (p.anchor + 1) % 7
}
