package calendar

import "time"

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// UTC переводит обе границы в UTC (так хранятся fecha в БД).
func (tr TimeRange) UTC() TimeRange {
	return TimeRange{Start: tr.Start.UTC(), End: tr.End.UTC()}
}

// DayRange возвращает локальные сутки, содержащие now: [00:00, следующая 00:00).
// Граница берётся через AddDate, поэтому сутки с переходом на летнее время
// имеют 23 или 25 часов.
func DayRange(now time.Time, loc *time.Location) TimeRange {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}
