package models

// StatName identifies one counter on the display.
type StatName string

const (
	StatRecon    StatName = "recon"
	StatParams   StatName = "params"
	StatScanned  StatName = "scanned"
	StatFindings StatName = "findings"
)

// StatsUpdate carries absolute values for the counters it names; others are untouched.
type StatsUpdate map[StatName]int
