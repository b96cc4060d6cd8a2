package bme280

import (
	"errors"
	"testing"

	"github.com/relabs-tech/env_monitor/internal/bme280/sim"
)

func TestParseCalibrationDatasheet(t *testing.T) {
	got, err := ParseCalibration(sim.DatasheetPrimary[:], sim.DatasheetSecondary[:])
	if err != nil {
		t.Fatalf("ParseCalibration: %v", err)
	}
	want := Calibration{
		T1: 27504, T2: 26435, T3: -1000,
		P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140, P6: -7,
		P7: 15500, P8: -14600, P9: 6000,
		H1: 75, H2: 362, H3: 0, H4: 313, H5: 50, H6: 30,
	}
	if got != want {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
}

func TestParseCalibrationDeterministic(t *testing.T) {
	a, _ := ParseCalibration(sim.DatasheetPrimary[:], sim.DatasheetSecondary[:])
	b, _ := ParseCalibration(sim.DatasheetPrimary[:], sim.DatasheetSecondary[:])
	if a != b {
		t.Errorf("two parses of the same bytes differ: %+v vs %+v", a, b)
	}
}

func TestParseCalibrationNegativeH4H5(t *testing.T) {
	sec := sim.DatasheetSecondary
	// H4 = 0xFF9 = -7, H5 = 0x80F = -2033.
	sec[3] = 0xFF
	sec[4] = 0xF9
	sec[5] = 0x80
	c, err := ParseCalibration(sim.DatasheetPrimary[:], sec[:])
	if err != nil {
		t.Fatal(err)
	}
	if c.H4 != -7 {
		t.Errorf("H4 = %d, want -7", c.H4)
	}
	if c.H5 != -2033 {
		t.Errorf("H5 = %d, want -2033", c.H5)
	}
}

func TestSignExtend12(t *testing.T) {
	tests := []struct {
		in   uint16
		want int16
	}{
		{0x000, 0},
		{0x7FF, 2047},
		{0x800, -2048},
		{0xFFF, -1},
		{0xF139, 313}, // high nibble ignored
	}
	for _, tt := range tests {
		if got := signExtend12(tt.in); got != tt.want {
			t.Errorf("signExtend12(0x%03X) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseCalibrationShort(t *testing.T) {
	cases := []struct {
		name      string
		prim, sec []byte
	}{
		{"primary", sim.DatasheetPrimary[:25], sim.DatasheetSecondary[:]},
		{"secondary", sim.DatasheetPrimary[:], sim.DatasheetSecondary[:6]},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseCalibration(tc.prim, tc.sec)
			if !errors.Is(err, CalibReadFail) {
				t.Fatalf("err = %v, want CalibReadFail", err)
			}
			if c != (Calibration{}) {
				t.Errorf("partial calibration returned: %+v", c)
			}
		})
	}
}
