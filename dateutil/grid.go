package dateutil

// EmptyCell marks a grid position outside the month in MonthGrid rows.
const EmptyCell = 0

// MonthGrid lays out the month containing d as calendar-rendering rows.
// Each row is a Sunday-to-Saturday week of seven cells holding the
// day-of-month number, or EmptyCell for positions before the first or after
// the last day of the month.
func MonthGrid(d Date) [][]int {
	days := DaysInMonth(d.Year, d.Month)
	col := int(MonthStart(d).Weekday())

	var weeks [][]int
	week := make([]int, 7)
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = make([]int, 7)
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
