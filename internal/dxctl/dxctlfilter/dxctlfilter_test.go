// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlfilter

import (
	"errors"
	"testing"
	"time"

	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestPredicate(t *testing.T) {
	t.Parallel()
	userSet, err := UserSet([]string{"alice", "bob", "alice"})
	require.NoError(t, err)
	collapsed, err := UserSet([]string{"carol", "carol"})
	require.NoError(t, err)
	for _, test := range []struct {
		desc      string
		filter    UserFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			desc:      "all users",
			filter:    AllUsers(),
			wantQuery: "principals.name IS NOT NULL",
		},
		{
			desc:      "single user",
			filter:    SingleUser("alice"),
			wantQuery: "principals.name = ?",
			wantArgs:  []any{"alice"},
		},
		{
			desc:      "user set",
			filter:    userSet,
			wantQuery: "principals.name IN ?",
			wantArgs:  []any{[]string{"alice", "bob"}},
		},
		{
			desc:      "user set of one collapses to single user",
			filter:    collapsed,
			wantQuery: "principals.name = ?",
			wantArgs:  []any{"carol"},
		},
	} {
		query, args := test.filter.Predicate("principals.name")
		require.Equal(t, test.wantQuery, query, test.desc)
		require.Equal(t, test.wantArgs, args, test.desc)
	}
}

func TestUserSetEmpty(t *testing.T) {
	t.Parallel()
	_, err := UserSet(nil)
	require.ErrorIs(t, err, ErrEmptyUserSet)
	_, err = FilterFromValue([]any{})
	require.ErrorIs(t, err, ErrEmptyUserSet)
}

func TestFilterFromValue(t *testing.T) {
	t.Parallel()
	filter, err := FilterFromValue(nil)
	require.NoError(t, err)
	require.True(t, filter.IsAll())
	filter, err = FilterFromValue("alice")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, filter.UserIDs())
	filter, err = FilterFromValue([]any{"alice", "bob"})
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, filter.UserIDs())
	require.Equal(t, "alice,bob", filter.String())

	_, err = FilterFromValue(42)
	var typeErr *InvalidFilterTypeError
	require.True(t, errors.As(err, &typeErr))
	require.Equal(t, 42, typeErr.Value)
	_, err = FilterFromValue([]any{"alice", 7})
	require.True(t, errors.As(err, &typeErr))
}

func TestUserIDsIsACopy(t *testing.T) {
	t.Parallel()
	filter := SingleUser("alice")
	userIDs := filter.UserIDs()
	userIDs[0] = "mallory"
	require.Equal(t, []string{"alice"}, filter.UserIDs())
}

func TestNewDateRange(t *testing.T) {
	t.Parallel()
	dateRange, err := NewDateRange(xtime.Date{Year: 2024, Month: time.March, Day: 1}, xtime.Date{Year: 2024, Month: time.March, Day: 3})
	require.NoError(t, err)
	require.Len(t, dateRange.Dates(), 3)
	require.Equal(t, "2024-03-01..2024-03-03", dateRange.String())
	start, end := dateRange.Bounds()
	require.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), end)

	_, err = NewDateRange(xtime.Date{Year: 2024, Month: time.March, Day: 3}, xtime.Date{Year: 2024, Month: time.March, Day: 1})
	require.ErrorIs(t, err, ErrEmptyDateRange)

	dateRange, err = NewDateRange(xtime.Date{Year: 2023, Month: time.March, Day: 1}, xtime.Date{})
	require.NoError(t, err)
	require.Equal(t, xtime.Today(time.UTC), dateRange.End)
}

func TestPeriodLabel(t *testing.T) {
	t.Parallel()
	weekly, err := ParsePeriod("W-MON")
	require.NoError(t, err)
	require.Equal(t, DefaultPeriod, weekly)
	daily, err := ParsePeriod("D")
	require.NoError(t, err)
	sunday, err := ParsePeriod("w-sun")
	require.NoError(t, err)
	_, err = ParsePeriod("M")
	require.Error(t, err)
	_, err = ParsePeriod("W-XYZ")
	require.Error(t, err)

	monday := xtime.Date{Year: 2024, Month: time.January, Day: 1}
	for _, test := range []struct {
		desc   string
		period Period
		date   xtime.Date
		want   xtime.Date
	}{
		{
			desc:   "monday opens a new weekly bucket",
			period: weekly,
			date:   monday,
			want:   xtime.Date{Year: 2024, Month: time.January, Day: 8},
		},
		{
			desc:   "sunday closes the weekly bucket",
			period: weekly,
			date:   xtime.Date{Year: 2024, Month: time.January, Day: 7},
			want:   xtime.Date{Year: 2024, Month: time.January, Day: 8},
		},
		{
			desc:   "wednesday",
			period: weekly,
			date:   xtime.Date{Year: 2024, Month: time.January, Day: 3},
			want:   xtime.Date{Year: 2024, Month: time.January, Day: 8},
		},
		{
			desc:   "sunday anchored week",
			period: sunday,
			date:   monday,
			want:   xtime.Date{Year: 2024, Month: time.January, Day: 7},
		},
		{
			desc:   "daily",
			period: daily,
			date:   monday,
			want:   monday,
		},
	} {
		require.Equal(t, test.want, test.period.Label(test.date), test.desc)
	}
	require.Equal(t, "W-MON", weekly.String())
	require.Equal(t, "W-SUN", sunday.String())
	require.Equal(t, "D", daily.String())
}
