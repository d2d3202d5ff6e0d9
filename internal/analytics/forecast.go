package analytics

import "time"

// ForecastDay is the number of reviews falling due on one local day.
type ForecastDay struct {
	Date  time.Time // local midnight
	Count int
	Today bool
}

// ForecastReport spreads every scheduled word over exactly one bucket:
// Overdue, one of Days, or Later. Unscheduled words are not counted.
// Upcoming()+Overdue+Later == Scheduled always holds, so when Later is 0
// Upcoming()+Overdue alone equals Scheduled.
type ForecastReport struct {
	Days      []ForecastDay
	Overdue   int
	Later     int
	Scheduled int
}

// Upcoming sums the per-day counts.
func (r ForecastReport) Upcoming() int {
	n := 0
	for _, d := range r.Days {
		n += d.Count
	}
	return n
}

// Forecast buckets next review dates over ForecastDays days starting today.
// A word due earlier today is counted today, not overdue.
func Forecast(s *Snapshot, cfg Config) (ForecastReport, error) {
	loc, err := cfg.location()
	if err != nil {
		return ForecastReport{}, err
	}

	today := startOfDay(s.Now, loc)
	report := ForecastReport{Days: make([]ForecastDay, cfg.ForecastDays)}
	bounds := make([]time.Time, cfg.ForecastDays+1)
	for i := range bounds {
		bounds[i] = today.AddDate(0, 0, i)
	}
	for i := range report.Days {
		report.Days[i] = ForecastDay{Date: bounds[i], Today: i == 0}
	}

	for _, w := range s.Words {
		if w.NextReviewAt == nil {
			continue
		}
		report.Scheduled++
		next := *w.NextReviewAt
		switch {
		case next.Before(today):
			report.Overdue++
		case !next.Before(bounds[len(bounds)-1]):
			report.Later++
		default:
			for i := range report.Days {
				if next.Before(bounds[i+1]) {
					report.Days[i].Count++
					break
				}
			}
		}
	}
	return report, nil
}
