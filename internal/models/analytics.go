package models

type AnalyticsReport struct {
	TotalCheckins int         `json:"totalCheckins"`
	AvgWaitTime   int64       `json:"avgWaitTime"`
	DailyStats    []DailyStat `json:"dailyStats"`
	PeakHours     []PeakHour  `json:"peakHours"`
}

type DailyStat struct {
	Date    string  `json:"date"` // YYYY-MM-DD in the reporting time zone
	Count   int     `json:"count"`
	AvgWait float64 `json:"avgWait"`
}

type PeakHour struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}
