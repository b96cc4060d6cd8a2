package env

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relabs-tech/env_monitor/internal/bme280"
)

// TimeLayout is the local timestamp format Tasmota uses in telemetry.
const TimeLayout = "2006-01-02T15:04:05"

// Payload is one tele/<topic>/SENSOR message.
type Payload struct {
	Time         string        `json:"Time"`
	CustomSensor bme280.Status `json:"CustomSensor"`
}

// NewPayload stamps st with t.
func NewPayload(t time.Time, st bme280.Status) Payload {
	return Payload{Time: t.Format(TimeLayout), CustomSensor: st}
}

// Validate checks raw against the consumer contract and returns every
// problem found. An empty result means the payload is acceptable.
func Validate(raw []byte) []string {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return []string{fmt.Sprintf("payload is not a JSON object: %v", err)}
	}

	var problems []string
	if t, ok := msg["Time"]; ok {
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			problems = append(problems, "Time is not a string")
		} else if _, err := time.Parse(TimeLayout, s); err != nil {
			problems = append(problems, fmt.Sprintf("Time %q is not %s", s, TimeLayout))
		}
	}

	cs, ok := msg["CustomSensor"]
	if !ok {
		return append(problems, "missing CustomSensor")
	}
	var fields map[string]any
	if err := json.Unmarshal(cs, &fields); err != nil {
		return append(problems, "CustomSensor is not an object")
	}

	if e, ok := fields["Error"]; ok {
		name, isString := e.(string)
		if !isString || !knownKind(bme280.Kind(name)) {
			problems = append(problems, fmt.Sprintf("CustomSensor.Error %v is not a known error", e))
		}
		if _, ok := fields["FailCount"].(float64); !ok {
			problems = append(problems, "CustomSensor.FailCount missing or not numeric")
		}
		return problems
	}

	for _, key := range []string{"Temperature", "Humidity", "Pressure"} {
		v, ok := fields[key]
		if !ok {
			problems = append(problems, "CustomSensor."+key+" missing")
			continue
		}
		if _, ok := v.(float64); !ok {
			problems = append(problems, fmt.Sprintf("CustomSensor.%s is %T, want number", key, v))
		}
	}
	return problems
}

func knownKind(k bme280.Kind) bool {
	switch k {
	case bme280.NotDetected, bme280.CalibReadFail, bme280.ConfigFail, bme280.TrigFail,
		bme280.Timeout, bme280.RawFail, bme280.Press0, bme280.Range, bme280.NoData, bme280.NotReady:
		return true
	}
	return false
}
