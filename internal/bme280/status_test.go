package bme280

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/relabs-tech/env_monitor/internal/bme280/sim"
	"periph.io/x/conn/v3/physic"
)

func TestStatusIsPure(t *testing.T) {
	chip := sim.New(AddressPrimary)
	d, h := readyDriver(t, chip, Config{})
	h.tick(d)

	writes, triggers := len(chip.Writes()), chip.Triggers()
	a, b := d.Status(), d.Status()
	if a != b {
		t.Errorf("consecutive Status calls differ: %+v vs %+v", a, b)
	}
	if len(chip.Writes()) != writes || chip.Triggers() != triggers {
		t.Errorf("Status touched the bus")
	}
}

func TestStatusJSON(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want string
	}{
		{
			"reading",
			Status{OK: true, Reading: datasheetReading},
			`{"Temperature":25.08,"Humidity":49.431640625,"Pressure":1006.53}`,
		},
		{
			"error",
			Status{Error: Timeout, FailCount: 2},
			`{"Error":"Timeout","FailCount":2}`,
		},
		{
			"not ready",
			Status{Error: NotReady},
			`{"Error":"NotReady","FailCount":0}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.st)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
			var back Status
			if err := json.Unmarshal(b, &back); err != nil {
				t.Fatal(err)
			}
			if back != tt.st {
				t.Errorf("decoded %+v, want %+v", back, tt.st)
			}
		})
	}
}

func TestStatusUnmarshalPartialReading(t *testing.T) {
	var st Status
	if err := json.Unmarshal([]byte(`{"Temperature":21.5,"Humidity":40}`), &st); err != nil {
		t.Fatal(err)
	}
	if st.OK {
		t.Errorf("partial reading decoded as OK: %+v", st)
	}
}

func TestReadingEnv(t *testing.T) {
	e := datasheetReading.Env()
	if got := e.Pressure; got != 100653*physic.Pascal {
		t.Errorf("pressure = %v, want 100653 Pa", got)
	}
	c := float64(e.Temperature-physic.ZeroCelsius) / float64(physic.Celsius)
	if math.Abs(c-25.08) > 1e-6 {
		t.Errorf("temperature = %v °C, want 25.08", c)
	}
	if rh := float64(e.Humidity) / float64(physic.PercentRH); math.Abs(rh-49.431640625) > 1e-3 {
		t.Errorf("humidity = %v %%RH", rh)
	}
}
