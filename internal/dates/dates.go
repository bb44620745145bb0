// Package dates holds the calendar arithmetic for timezone-aware reporting:
// parsing upstream timestamps, bucketing instants into merchant-local days and
// mapping local day ranges onto the UTC query window sent to Shopify.
package dates

import (
	"fmt"
	"strings"
	"time"

	"shopify-sales-insights/internal/domain"
)

// DayFormat is the wire form of a local calendar day.
const DayFormat = "2006-01-02"

// ParseShopifyTime parses an ISO-8601 timestamp as emitted by the Shopify
// Admin API. A trailing "Z" is normalized to an explicit UTC offset before the
// second attempt.
func ParseShopifyTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	if strings.HasSuffix(s, "Z") {
		t, err = time.Parse("2006-01-02T15:04:05-07:00", strings.TrimSuffix(s, "Z")+"+00:00")
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrMalformedTimestamp, s)
}

// Location resolves an IANA timezone name, falling back to UTC when the name
// is unknown. The fallback is deliberate: a bad shop timezone must degrade the
// report to UTC bucketing, not fail it.
func Location(tzName string) *time.Location {
	if tzName == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDay returns the calendar date of t in loc, in YYYY-MM-DD form.
func LocalDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayFormat)
}

// DayBoundsUTC maps [startDate 00:00:00 local, endDate 23:59:59 local] to a
// pair of UTC instants, inclusive on both ends. The boundaries are built in
// the local zone; computing them in UTC would mis-bucket orders near midnight
// for any non-UTC shop.
func DayBoundsUTC(startDate, endDate string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DayFormat, startDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad start_date %q", domain.ErrBadDateRange, startDate)
	}
	end, err := time.ParseInLocation(DayFormat, endDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad end_date %q", domain.ErrBadDateRange, endDate)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, domain.ErrBadDateRange
	}
	// Built with time.Date rather than a 24h offset so DST transition days
	// keep their full local day.
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, loc)
	return start.UTC(), endOfDay.UTC(), nil
}

// DefaultRange returns the trailing 14 local days ending today in loc.
func DefaultRange(loc *time.Location) (string, string) {
	today := time.Now().In(loc)
	return today.AddDate(0, 0, -13).Format(DayFormat), today.Format(DayFormat)
}
