package visits

import (
	"time"

	"gatedesk/models"
)

// ChartDays is the fixed width of the arrival chart.
const ChartDays = 7

const chartLabelLayout = "Jan 2"

// LastSevenDaysLabels returns the labels of the seven calendar days ending today, oldest first.
func LastSevenDaysLabels(now time.Time) []string {
	labels := make([]string, 0, ChartDays)
	for i := ChartDays - 1; i >= 0; i-- {
		labels = append(labels, now.AddDate(0, 0, -i).Format(chartLabelLayout))
	}
	return labels
}

// EmptyChart is the all-zero series for the week ending at now.
func EmptyChart(now time.Time) models.ChartSeries {
	return models.ChartSeries{
		Labels: LastSevenDaysLabels(now),
		Counts: make([]int, ChartDays),
	}
}

// Aggregate counts arrived guests per scheduled day over the trailing week.
// Guests that are not arrived, have unparseable dates, or fall outside the week are skipped.
func Aggregate(guests []models.RawGuest, now time.Time) models.ChartSeries {
	series := EmptyChart(now)
	for _, g := range guests {
		if !g.Arrived() {
			continue
		}
		date, ok := ParseDate(g.ScheduledDate, now.Location())
		if !ok {
			continue
		}
		daysAgo := calendarDaysBetween(date, now)
		if daysAgo < 0 || daysAgo >= ChartDays {
			continue
		}
		series.Counts[ChartDays-1-daysAgo]++
	}
	return series
}
