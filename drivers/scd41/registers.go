package scd41

// Single-shot commands (SCD41 only; not exposed by the scd4x package).
const (
	cmdMeasureSingleShot        = 0x219D
	cmdMeasureSingleShotRHTOnly = 0x2196
)

// Command execution times from the datasheet.
const (
	delayCommand     = 1   // ms, plain commands and reads
	delayStopPeriod  = 500 // ms, stop_periodic_measurement
	delayFRC         = 400 // ms, perform_forced_recalibration
	delayPersist     = 800 // ms, persist_settings
	frcFailedWord    = 0xFFFF
	frcCorrectionMid = 0x8000
)
