// Copyright 2026 Peter Edge
//
// All rights reserved.

package xtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()
	date, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, date)
	require.Equal(t, "2024-02-29", date.String())
	for _, invalid := range []string{"", "2023-02-29", "2024-2-1", "01/02/2024", "2024-01-02T00:00:00Z"} {
		_, err := ParseDate(invalid)
		require.Error(t, err, invalid)
	}
}

func TestTimeToDate(t *testing.T) {
	t.Parallel()
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 2024-03-01 02:30 UTC is still 2024-02-29 in New York.
	instant := time.Date(2024, time.March, 1, 2, 30, 0, 0, time.UTC)
	require.Equal(t, Date{2024, time.March, 1}, TimeToDate(instant))
	require.Equal(t, Date{2024, time.February, 29}, TimeToDate(instant.In(newYork)))
	require.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Date{2024, time.March, 1}.In(time.UTC))
}

func TestDateIsValid(t *testing.T) {
	t.Parallel()
	require.True(t, Date{2024, time.February, 29}.IsValid())
	require.False(t, Date{2023, time.February, 29}.IsValid())
	require.False(t, Date{2024, time.April, 31}.IsValid())
	require.False(t, Date{2024, 13, 1}.IsValid())
	require.False(t, Date{}.IsValid())
	require.True(t, Date{}.IsZero())
	require.False(t, Date{2024, time.January, 1}.IsZero())
}

func TestDateArithmetic(t *testing.T) {
	t.Parallel()
	start := Date{2023, time.December, 30}
	require.Equal(t, Date{2024, time.January, 2}, start.AddDays(3))
	require.Equal(t, Date{2023, time.December, 1}, start.AddDays(-29))
	require.Equal(t, 3, start.AddDays(3).DaysSince(start))
	require.Equal(t, -3, start.DaysSince(start.AddDays(3)))
	require.Equal(t, time.Saturday, start.Weekday())
	require.Equal(t, time.Monday, Date{2024, time.January, 1}.Weekday())
}

func TestDateOrdering(t *testing.T) {
	t.Parallel()
	early := Date{2024, time.January, 31}
	late := Date{2024, time.February, 1}
	require.True(t, early.Before(late))
	require.False(t, late.Before(early))
	require.False(t, early.Before(early))
	require.True(t, early.EqualOrBefore(early))
	require.True(t, early.EqualOrBefore(late))
	require.False(t, late.EqualOrBefore(early))
	require.Equal(t, -1, early.Compare(late))
	require.Equal(t, 1, late.Compare(early))
	require.Equal(t, 0, late.Compare(late))
	require.True(t, Date{2023, time.December, 31}.Before(early))
}

func TestDatesBetween(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		desc  string
		start Date
		end   Date
		want  []Date
	}{
		{
			desc:  "single day",
			start: Date{2024, 3, 1},
			end:   Date{2024, 3, 1},
			want:  []Date{{2024, 3, 1}},
		},
		{
			desc:  "crossing a leap day",
			start: Date{2024, 2, 28},
			end:   Date{2024, 3, 1},
			want:  []Date{{2024, 2, 28}, {2024, 2, 29}, {2024, 3, 1}},
		},
		{
			desc:  "crossing a year",
			start: Date{2023, 12, 31},
			end:   Date{2024, 1, 1},
			want:  []Date{{2023, 12, 31}, {2024, 1, 1}},
		},
		{
			desc:  "end before start",
			start: Date{2024, 3, 2},
			end:   Date{2024, 3, 1},
			want:  nil,
		},
	} {
		got := DatesBetween(test.start, test.end)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("[%s] DatesBetween mismatch (-want +got):\n%s", test.desc, diff)
		}
	}
}

func TestDateJSON(t *testing.T) {
	t.Parallel()
	type record struct {
		Date Date `json:"date"`
	}
	data, err := json.Marshal(record{Date: Date{2024, time.July, 4}})
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"2024-07-04"}`, string(data))
	var got record
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-01-09"}`), &got))
	require.Equal(t, Date{2025, time.January, 9}, got.Date)
	require.Error(t, json.Unmarshal([]byte(`{"date":"2025-13-09"}`), &got))
}
