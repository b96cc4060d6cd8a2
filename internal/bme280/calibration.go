package bme280

import "fmt"

// Calibration holds the factory trimming coefficients. It is immutable once
// parsed and only ever replaced as a whole on re-initialisation.
type Calibration struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16

	H1 uint8
	H2 int16
	H3 uint8
	H4 int16 // 12-bit, sign extended
	H5 int16 // 12-bit, sign extended
	H6 int8
}

// ParseCalibration decodes the primary block (0x88..0xA1, 26 bytes) and the
// secondary block (0xE1..0xE7, 7 bytes). A short buffer yields a
// CalibReadFail error and no partial result.
func ParseCalibration(primary, secondary []byte) (Calibration, error) {
	if len(primary) < calibPrimaryLen {
		return Calibration{}, newError(CalibReadFail, "parse calibration",
			fmt.Errorf("primary block has %d bytes, want %d", len(primary), calibPrimaryLen))
	}
	if len(secondary) < calibSecondaryLen {
		return Calibration{}, newError(CalibReadFail, "parse calibration",
			fmt.Errorf("secondary block has %d bytes, want %d", len(secondary), calibSecondaryLen))
	}

	p, s := primary, secondary
	return Calibration{
		T1: le16(p[0:]),
		T2: leS16(p[2:]),
		T3: leS16(p[4:]),

		P1: le16(p[6:]),
		P2: leS16(p[8:]),
		P3: leS16(p[10:]),
		P4: leS16(p[12:]),
		P5: leS16(p[14:]),
		P6: leS16(p[16:]),
		P7: leS16(p[18:]),
		P8: leS16(p[20:]),
		P9: leS16(p[22:]),

		// p[24] (0xA0) is reserved.
		H1: p[25],
		H2: leS16(s[0:]),
		H3: s[2],
		H4: unpackH4(s[3], s[4]),
		H5: unpackH5(s[4], s[5]),
		H6: int8(s[6]),
	}, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func leS16(b []byte) int16 { return int16(le16(b)) }

// signExtend12 interprets the low 12 bits of v as a two's complement value.
func signExtend12(v uint16) int16 {
	v &= 0x0FFF
	if v&0x0800 != 0 {
		v |= 0xF000
	}
	return int16(v)
}

// unpackH4 joins 0xE4 (bits 11:4) with the low nibble of 0xE5 (bits 3:0).
func unpackH4(e4, e5 byte) int16 {
	return signExtend12(uint16(e4)<<4 | uint16(e5&0x0F))
}

// unpackH5 joins 0xE6 (bits 11:4) with the high nibble of 0xE5 (bits 3:0).
func unpackH5(e5, e6 byte) int16 {
	return signExtend12(uint16(e6)<<4 | uint16(e5>>4))
}
