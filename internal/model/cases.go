package model

import "time"

// CaseSeriesRow is one day of reported cases for a country.
type CaseSeriesRow struct {
	Date    time.Time `json:"date"`
	Cases   int64     `json:"cases"`
	Country string    `json:"country"`
}
