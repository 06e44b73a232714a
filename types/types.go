package types

import "time"

// ------------------------
// Units of work
// ------------------------

// Unit names one supervised unit of work.
type Unit string

const (
	UnitSensor       Unit = "sensor"
	UnitPower        Unit = "power"
	UnitOrchestrator Unit = "orchestrator"
	UnitDisplay      Unit = "display"
)

// AllUnits lists every unit the watchdog supervises.
var AllUnits = []Unit{UnitSensor, UnitPower, UnitOrchestrator, UnitDisplay}

// ------------------------
// Air quality (ENS160)
// ------------------------

// AQI is the UBA air quality index, 1 (excellent) .. 5 (unhealthy). 0 = unknown.
type AQI uint8

const (
	AQIUnknown AQI = iota
	AQIExcellent
	AQIGood
	AQIModerate
	AQIPoor
	AQIUnhealthy
)

func (a AQI) String() string {
	switch a {
	case AQIExcellent:
		return "Excellent"
	case AQIGood:
		return "Good"
	case AQIModerate:
		return "Moderate"
	case AQIPoor:
		return "Poor"
	case AQIUnhealthy:
		return "Unhealthy"
	}
	return "Unknown"
}

// Validity mirrors the ENS160 status VALIDITY field.
type Validity uint8

const (
	ValidityNormal Validity = iota
	ValidityWarmup
	ValidityInitialStartup
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityNormal:
		return "normal"
	case ValidityWarmup:
		return "warmup"
	case ValidityInitialStartup:
		return "initial_startup"
	}
	return "invalid"
}

// AirSample is one raw air-quality read.
type AirSample struct {
	ECO2     uint16 // ppm
	TVOC     uint16 // ppb
	AQI      AQI
	Validity Validity
}

// ClimateSample is one raw temperature/humidity read, in tenths.
type ClimateSample struct {
	DeciCelsius int32
	DeciRelHum  int32
}

// ------------------------
// Filtered reading
// ------------------------

// SensorReading is the filtered result of one acquisition cycle. It is
// never modified after construction.
type SensorReading struct {
	ECO2        uint16 // ppm, burst median
	TVOC        uint16 // ppb, burst median
	AQI         AQI
	Validity    Validity
	DeciCelsius int32
	DeciRelHum  int32 // calibrated
	RawRelHum   int32 // as read
	CapturedAt  time.Time
}

// ------------------------
// Display
// ------------------------

type DisplayMode uint8

const (
	ModeReadings DisplayMode = iota
	ModeHistory
)

// Next returns the mode that follows m in the fixed cycle.
func (m DisplayMode) Next() DisplayMode {
	if m == ModeReadings {
		return ModeHistory
	}
	return ModeReadings
}

func (m DisplayMode) String() string {
	if m == ModeHistory {
		return "history"
	}
	return "readings"
}
