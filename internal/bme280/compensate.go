package bme280

import "fmt"

// Physical operating limits. Readings outside are rejected, never clamped.
const (
	MinTemperature = -40.0  // °C
	MaxTemperature = 85.0   // °C
	MinHumidity    = 0.0    // %RH
	MaxHumidity    = 100.0  // %RH
	MinPressure    = 300.0  // hPa
	MaxPressure    = 1100.0 // hPa
)

// humidityMax is 100 %RH in the Q22.10 representation, shifted left by 12.
const humidityMax = 419430400

// RawSample is one burst of uncompensated ADC output.
type RawSample struct {
	Pressure    int32 // 20 bits
	Temperature int32 // 20 bits
	Humidity    int32 // 16 bits
}

// unpackRaw decodes the 8 data registers starting at 0xF7. Pressure and
// temperature are msb/lsb/xlsb with the xlsb value in bits 7:4.
func unpackRaw(b []byte) RawSample {
	return RawSample{
		Pressure:    int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4,
		Temperature: int32(b[3])<<12 | int32(b[4])<<4 | int32(b[5])>>4,
		Humidity:    int32(b[6])<<8 | int32(b[7]),
	}
}

// Reading is a compensated measurement in physical units.
type Reading struct {
	Temperature float64 `json:"Temperature"` // °C
	Humidity    float64 `json:"Humidity"`    // %RH
	Pressure    float64 `json:"Pressure"`    // hPa
}

// Compensate converts s to physical units. Temperature is always computed
// first; its fine temperature feeds pressure and humidity and does not
// outlive this call.
func (c *Calibration) Compensate(s RawSample) (Reading, error) {
	centiC, tFine := c.compensateTemperature(s.Temperature)
	pa, err := c.compensatePressure(s.Pressure, tFine)
	if err != nil {
		return Reading{}, err
	}
	q10 := c.compensateHumidity(s.Humidity, tFine)

	return Reading{
		Temperature: float64(centiC) / 100,
		Humidity:    float64(q10) / 1024,
		Pressure:    float64(pa) / 100,
	}, nil
}

// compensateTemperature returns temperature in 0.01 °C and t_fine.
// Output value of 5123 equals 51.23 °C.
//
// raw has 20 bits of resolution.
func (c *Calibration) compensateTemperature(raw int32) (int32, int32) {
	var1 := (((raw >> 3) - (int32(c.T1) << 1)) * int32(c.T2)) >> 11
	d := (raw >> 4) - int32(c.T1)
	var2 := (((d * d) >> 12) * int32(c.T3)) >> 14
	tFine := var1 + var2
	return (tFine*5 + 128) >> 8, tFine
}

// compensatePressure returns pressure in Pa using the 64-bit algorithm. The
// Q24.8 result is truncated to whole Pascals; a negative result gives 0.
//
// raw has 20 bits of resolution.
func (c *Calibration) compensatePressure(raw, tFine int32) (uint32, error) {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.P6)
	var2 += (var1 * int64(c.P5)) << 17
	var2 += int64(c.P4) << 35
	var1 = ((var1 * var1 * int64(c.P3)) >> 8) + ((var1 * int64(c.P2)) << 12)
	var1 = ((int64(1)<<47 + var1) * int64(c.P1)) >> 33
	if var1 == 0 {
		return 0, errDivisionGuard
	}
	p := 1048576 - int64(raw)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.P9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.P8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.P7) << 4)
	if p < 0 {
		return 0, nil
	}
	return uint32(p >> 8), nil
}

// compensateHumidity returns humidity in %RH as Q22.10 (22 integer and 10
// fractional bits). Output value of 47445 represents 47445/1024 = 46.333 %RH.
// The intermediate is saturated to [0, 100 %RH].
//
// raw has 16 bits of resolution.
func (c *Calibration) compensateHumidity(raw, tFine int32) uint32 {
	x := tFine - 76800

	a := (((raw << 14) - (int32(c.H4) << 20) - (int32(c.H5) * x)) + 16384) >> 15
	b1 := (x * int32(c.H6)) >> 10
	b2 := ((x * int32(c.H3)) >> 11) + 32768
	b3 := ((b1 * b2) >> 10) + 2097152
	b := (b3*int32(c.H2) + 8192) >> 14

	v := a * b
	v -= ((((v >> 15) * (v >> 15)) >> 7) * int32(c.H1)) >> 4
	if v < 0 {
		v = 0
	}
	if v > humidityMax {
		v = humidityMax
	}
	return uint32(v >> 12)
}

// CheckRange rejects readings outside the sensor's operating range.
func (r Reading) CheckRange() error {
	switch {
	case r.Temperature < MinTemperature || r.Temperature > MaxTemperature:
		return newError(Range, "range check",
			fmt.Errorf("temperature %.2f °C outside [%g, %g]", r.Temperature, MinTemperature, MaxTemperature))
	case r.Humidity < MinHumidity || r.Humidity > MaxHumidity:
		return newError(Range, "range check",
			fmt.Errorf("humidity %.3f %%RH outside [%g, %g]", r.Humidity, MinHumidity, MaxHumidity))
	case r.Pressure < MinPressure || r.Pressure > MaxPressure:
		return newError(Range, "range check",
			fmt.Errorf("pressure %.2f hPa outside [%g, %g]", r.Pressure, MinPressure, MaxPressure))
	}
	return nil
}
