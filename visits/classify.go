package visits

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"gatedesk/models"
)

// UpcomingWindow is the look-ahead of the dashboard's upcoming list.
const UpcomingWindow = 24 * time.Hour

// FilterUpcoming24Hours keeps visits whose scheduled date and time fall in [now, now+24h],
// ordered by that instant. Visits without a parseable date are dropped.
func FilterUpcoming24Hours(visits []models.Visit, now time.Time) []models.Visit {
	type keyed struct {
		at    time.Time
		visit models.Visit
	}
	end := now.Add(UpcomingWindow)

	var picked []keyed
	for _, v := range visits {
		if v.ScheduledAt.IsZero() {
			continue
		}
		at := CombineDateTime(v.ScheduledAt.In(now.Location()), v.ScheduledTime)
		if at.Before(now) || at.After(end) {
			continue
		}
		picked = append(picked, keyed{at: at, visit: v})
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].at.Before(picked[j].at)
	})

	out := make([]models.Visit, 0, len(picked))
	for _, k := range picked {
		out = append(out, k.visit)
	}
	return out
}

// Filter selects the look-back period applied to the arrived list.
type Filter string

const (
	FilterAll   Filter = "all"
	FilterDay   Filter = "day"
	FilterWeek  Filter = "week"
	FilterMonth Filter = "month"
)

// ParseFilter maps a query value to a Filter. Empty input selects FilterDay, unknown input FilterAll.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return FilterDay
	case FilterDay:
		return FilterDay
	case FilterWeek:
		return FilterWeek
	case FilterMonth:
		return FilterMonth
	default:
		return FilterAll
	}
}

// Label is the human readable name of the period.
func (f Filter) Label() string {
	switch f {
	case FilterDay:
		return "Last 24 Hours"
	case FilterWeek:
		return "Last 7 Days"
	case FilterMonth:
		return "Last 30 Days"
	default:
		return "All Time"
	}
}

func (f Filter) days() int {
	switch f {
	case FilterDay:
		return 1
	case FilterWeek:
		return 7
	case FilterMonth:
		return 30
	default:
		return 0
	}
}

// IsWithinFilterPeriod tests a guest's scheduled date (not its arrival) against [now-period, now].
// FilterAll accepts everything, including unparseable dates.
func IsWithinFilterPeriod(rawDate string, f Filter, now time.Time) bool {
	days := f.days()
	if days == 0 {
		return true
	}
	date, ok := ParseDate(rawDate, now.Location())
	if !ok {
		return false
	}
	from := now.AddDate(0, 0, -days)
	return !date.Before(from) && !date.After(now)
}

// ActiveVisitors returns guests flagged as arrived that carry an arrival time.
func ActiveVisitors(guests []models.RawGuest) []models.RawGuest {
	out := make([]models.RawGuest, 0, len(guests))
	for _, g := range guests {
		if g.Arrived() && g.ArrivedAt != "" {
			out = append(out, g)
		}
	}
	return out
}

// PendingVisitors is the complement of ActiveVisitors.
func PendingVisitors(guests []models.RawGuest) []models.RawGuest {
	out := make([]models.RawGuest, 0, len(guests))
	for _, g := range guests {
		if !g.Arrived() || g.ArrivedAt == "" {
			out = append(out, g)
		}
	}
	return out
}

// ScheduledBucket lists guests not yet arrived whose scheduled date and time is at or after the
// start of today, earliest first.
func ScheduledBucket(all []models.RawGuest, now time.Time) []models.Visit {
	loc := now.Location()
	today := startOfDay(now)

	type keyed struct {
		at    time.Time
		visit models.Visit
	}
	var picked []keyed
	for _, g := range all {
		if g.IsArrived != "N" {
			continue
		}
		at, ok := ScheduledInstant(g.ScheduledDate, g.ArrivalTimeCode.String(), loc)
		if !ok || at.Before(today) {
			continue
		}
		v := ToVisit(g, loc)
		v.Status = models.StatusUpcoming
		picked = append(picked, keyed{at: at, visit: v})
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].at.Before(picked[j].at)
	})

	out := make([]models.Visit, 0, len(picked))
	for _, k := range picked {
		out = append(out, k.visit)
	}
	return out
}

// ArrivalResolver supplies the guard and arrival time shown for an arrived guest.
type ArrivalResolver func(models.RawGuest) models.ArrivalDisplay

// ActiveBucket lists arrived guests within the filter period, most recent arrival first,
// with arrival fields taken from resolve.
func ActiveBucket(arrived []models.RawGuest, f Filter, now time.Time, resolve ArrivalResolver) []models.Visit {
	loc := now.Location()

	type keyed struct {
		at    time.Time
		visit models.Visit
	}
	var picked []keyed
	for _, g := range arrived {
		if !IsWithinFilterPeriod(g.ScheduledDate, f, now) {
			continue
		}

		v := ToVisit(g, loc)
		v.Status = models.StatusArrived
		if resolve != nil {
			d := resolve(g)
			v.GuardName = d.GuardName
			v.ArrivedAt = d.ArrivedAt
		}
		picked = append(picked, keyed{at: arrivalSortKey(g, now), visit: v})
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].at.After(picked[j].at)
	})

	out := make([]models.Visit, 0, len(picked))
	for _, k := range picked {
		out = append(out, k.visit)
	}
	return out
}

// arrivalSortKey is the scheduled date at the server-reported arrival clock time.
// A missing date counts as today; an unparseable one sorts last.
func arrivalSortKey(g models.RawGuest, now time.Time) time.Time {
	date := startOfDay(now)
	if g.ScheduledDate != "" {
		d, ok := ParseDate(g.ScheduledDate, now.Location())
		if !ok {
			return time.Time{}
		}
		date = d
	}
	hours, minutes := arrivalClock(g.ArrivedAt)
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, date.Location())
}

// arrivalClock reads the hour and minute of strings such as "14:05" or "2:05:31 PM".
func arrivalClock(s string) (int, int) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, 0
	}
	hours := leadingInt(parts[0])
	minutes := leadingInt(parts[1])
	if strings.HasSuffix(strings.ToUpper(s), "PM") && hours < 12 {
		hours += 12
	}
	if strings.HasSuffix(strings.ToUpper(s), "AM") && hours == 12 {
		hours = 0
	}
	return hours, minutes
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
