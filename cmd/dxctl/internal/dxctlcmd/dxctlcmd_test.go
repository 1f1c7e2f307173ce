// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlcmd

import (
	"testing"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlconfig"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestReportScopeDefaults(t *testing.T) {
	t.Parallel()
	weekly, err := dxctlfilter.ParsePeriod("W-SUN")
	require.NoError(t, err)
	reportsConfig := dxctlconfig.ReportsConfig{
		UserFilter: dxctlfilter.SingleUser("U1"),
		DateFrom:   xtime.Date{Year: 2024, Month: time.January, Day: 1},
		Period:     weekly,
	}
	userFilter, dateRange, period, err := reportScope(&ReportFlags{DateRangeFlags: DateRangeFlags{To: "2024-01-31"}}, reportsConfig)
	require.NoError(t, err)
	require.Equal(t, []string{"U1"}, userFilter.UserIDs())
	require.Equal(t, "2024-01-01..2024-01-31", dateRange.String())
	require.Equal(t, "W-SUN", period.String())
}

func TestReportScopeFlagsOverrideConfig(t *testing.T) {
	t.Parallel()
	reportsConfig := dxctlconfig.ReportsConfig{
		UserFilter: dxctlfilter.AllUsers(),
		DateFrom:   xtime.Date{Year: 2024, Month: time.January, Day: 1},
		Period:     dxctlfilter.DefaultPeriod,
	}
	flags := &ReportFlags{
		DateRangeFlags: DateRangeFlags{From: "2024-03-01", To: "2024-03-02"},
		Users:          []string{"U7"},
		Period:         "D",
	}
	userFilter, dateRange, period, err := reportScope(flags, reportsConfig)
	require.NoError(t, err)
	require.Equal(t, []string{"U7"}, userFilter.UserIDs())
	require.Equal(t, []xtime.Date{{Year: 2024, Month: time.March, Day: 1}, {Year: 2024, Month: time.March, Day: 2}}, dateRange.Dates())
	require.Equal(t, "D", period.String())
}

func TestDateRangeFlags(t *testing.T) {
	t.Parallel()
	dateFrom := xtime.Date{Year: 2024, Month: time.January, Day: 1}
	dateRange, err := (&DateRangeFlags{To: "2024-01-03"}).DateRange(dateFrom)
	require.NoError(t, err)
	require.Equal(t, "2024-01-01..2024-01-03", dateRange.String())
	dateRange, err = (&DateRangeFlags{From: "2024-01-02", To: "2024-01-02"}).DateRange(dateFrom)
	require.NoError(t, err)
	require.Equal(t, []xtime.Date{{Year: 2024, Month: time.January, Day: 2}}, dateRange.Dates())

	_, err = (&DateRangeFlags{}).DateRange(xtime.Date{})
	require.ErrorContains(t, err, "--from is required")
	_, err = (&DateRangeFlags{From: "2024-13-01"}).DateRange(dateFrom)
	require.ErrorContains(t, err, "expected YYYY-MM-DD")
}

func TestReportScopeErrors(t *testing.T) {
	t.Parallel()
	configured := dxctlconfig.ReportsConfig{
		DateFrom: xtime.Date{Year: 2024, Month: time.January, Day: 1},
	}
	testCases := []struct {
		name          string
		flags         *ReportFlags
		reportsConfig dxctlconfig.ReportsConfig
		errContains   string
	}{
		{
			name:        "missing_from",
			flags:       &ReportFlags{},
			errContains: "--from is required",
		},
		{
			name:          "bad_from",
			flags:         &ReportFlags{DateRangeFlags: DateRangeFlags{From: "01/02/2024"}},
			reportsConfig: configured,
			errContains:   "invalid --from",
		},
		{
			name:          "bad_to",
			flags:         &ReportFlags{DateRangeFlags: DateRangeFlags{To: "tomorrow"}},
			reportsConfig: configured,
			errContains:   "invalid --to",
		},
		{
			name:          "end_before_start",
			flags:         &ReportFlags{DateRangeFlags: DateRangeFlags{From: "2024-02-01", To: "2024-01-31"}},
			reportsConfig: configured,
			errContains:   "before start",
		},
		{
			name:          "bad_period",
			flags:         &ReportFlags{Period: "M"},
			reportsConfig: configured,
			errContains:   "unknown period",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			_, _, _, err := reportScope(testCase.flags, testCase.reportsConfig)
			require.ErrorContains(t, err, testCase.errContains)
		})
	}
}
