package surveygen

import "time"

// Question texts carrying the track keywords.
const (
	nationalQuestion = `"Soll das Gen im Rahmen eines nationalen Neugeborenenscreenings untersucht werden?"`
	studyQuestion    = `"Soll das Gen im Rahmen wissenschaftlicher Studien untersucht werden?"`
)

// Generator constants.
const (
	minYesProbability   = 0.2
	yesProbabilityRange = 0.8
	seedStride          = 0x9e3779b97f4a7c15
)

// Runner configuration constants.
const (
	directoryPermission  = 0750
	logFilePermission    = 0600
	maxMismatchesLogged  = 10
	defaultUploadName    = "synthetic_survey.csv"
	healthCheckRetry     = 500 * time.Millisecond
	healthCheckAttempts  = 5
	respondentIDColumn   = "ID"
	syntheticGenePattern = "SYN%03d"
)
