package bme280

import (
	"encoding/json"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Status is the read-only projection consumed by telemetry: either a valid
// reading or an error kind with the consecutive failure count.
type Status struct {
	OK        bool
	Reading   Reading
	Error     Kind
	FailCount int
}

type statusError struct {
	Error     string `json:"Error"`
	FailCount int    `json:"FailCount"`
}

// MarshalJSON emits {Temperature, Humidity, Pressure} when OK and
// {Error, FailCount} otherwise.
func (s Status) MarshalJSON() ([]byte, error) {
	if s.OK {
		return json.Marshal(s.Reading)
	}
	return json.Marshal(statusError{Error: string(s.Error), FailCount: s.FailCount})
}

// UnmarshalJSON accepts either shape produced by MarshalJSON.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw struct {
		Temperature *float64 `json:"Temperature"`
		Humidity    *float64 `json:"Humidity"`
		Pressure    *float64 `json:"Pressure"`
		Error       string   `json:"Error"`
		FailCount   int      `json:"FailCount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Status{}
	if raw.Error != "" || raw.Temperature == nil || raw.Humidity == nil || raw.Pressure == nil {
		s.Error = Kind(raw.Error)
		s.FailCount = raw.FailCount
		return nil
	}
	s.OK = true
	s.Reading = Reading{Temperature: *raw.Temperature, Humidity: *raw.Humidity, Pressure: *raw.Pressure}
	return nil
}

// Status reports the current reading or error. It performs no I/O.
func (d *Driver) Status() Status {
	initialized := d.state == Ready || d.state == Degraded
	if initialized && d.haveReading && d.lastErr == None {
		return Status{OK: true, Reading: d.reading}
	}

	k := d.lastErr
	if k == None {
		if initialized {
			k = NoData
		} else {
			k = NotReady
		}
	}
	// After escalation failures still holds the count that triggered it,
	// until the next successful initialisation clears it.
	return Status{Error: k, FailCount: d.failures}
}

// Env converts r to periph physical units.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(math.Round(r.Temperature*float64(physic.Kelvin))),
		Pressure:    physic.Pressure(math.Round(r.Pressure * 100 * float64(physic.Pascal))),
		Humidity:    physic.RelativeHumidity(math.Round(r.Humidity * float64(physic.PercentRH))),
	}
}
