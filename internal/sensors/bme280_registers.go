// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sort"
)

// RegisterInfo describes one device register for the register debug tool.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BitField describes a field inside a register.
type BitField struct {
	Bits        string `json:"bits"` // "7:5" or "3"
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// BME280RegisterMap returns metadata for the BME280 registers.
func BME280RegisterMap() []RegisterInfo {
	osrs := "0=Skipped, 1=x1, 2=x2, 3=x4, 4=x8, 5..7=x16"
	return []RegisterInfo{
		// Identification and reset
		{Address: "0xD0", Name: "ID", Description: "Chip identification", Access: "R", Default: "0x60",
			BitFields: []BitField{
				{Bits: "7:0", Name: "chip_id", Description: "Chip ID", Values: "0x60 for BME280"},
			}},
		{Address: "0xE0", Name: "RESET", Description: "Soft reset", Access: "W", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:0", Name: "reset", Description: "Writing 0xB6 resets the device", Values: "0xB6=Reset"},
			}},

		// Control
		{Address: "0xF2", Name: "CTRL_HUM", Description: "Humidity oversampling", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "2:0", Name: "osrs_h", Description: "Humidity oversampling; effective after a CTRL_MEAS write", Values: osrs},
			}},
		{Address: "0xF3", Name: "STATUS", Description: "Device status", Access: "R", Default: "0x00",
			BitFields: []BitField{
				{Bits: "3", Name: "measuring", Description: "Conversion running", Values: "0=Done, 1=Running"},
				{Bits: "0", Name: "im_update", Description: "NVM data being copied to image registers", Values: "0=Done, 1=Copying"},
			}},
		{Address: "0xF4", Name: "CTRL_MEAS", Description: "Pressure/temperature oversampling and mode", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:5", Name: "osrs_t", Description: "Temperature oversampling", Values: osrs},
				{Bits: "4:2", Name: "osrs_p", Description: "Pressure oversampling", Values: osrs},
				{Bits: "1:0", Name: "mode", Description: "Sensor mode", Values: "0=Sleep, 1/2=Forced, 3=Normal"},
			}},
		{Address: "0xF5", Name: "CONFIG", Description: "Standby, filter and interface options", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:5", Name: "t_sb", Description: "Standby time in normal mode", Values: "0=0.5ms, 1=62.5ms, 2=125ms, 3=250ms, 4=500ms, 5=1000ms, 6=10ms, 7=20ms"},
				{Bits: "4:2", Name: "filter", Description: "IIR filter coefficient", Values: "0=Off, 1=2, 2=4, 3=8, 4..7=16"},
				{Bits: "0", Name: "spi3w_en", Description: "3-wire SPI", Values: "0=Disabled, 1=Enabled"},
			}},

		// Data (read-only)
		{Address: "0xF7", Name: "PRESS_MSB", Description: "Pressure ADC [19:12]", Access: "R", Default: "0x80"},
		{Address: "0xF8", Name: "PRESS_LSB", Description: "Pressure ADC [11:4]", Access: "R", Default: "0x00"},
		{Address: "0xF9", Name: "PRESS_XLSB", Description: "Pressure ADC [3:0] in bits 7:4", Access: "R", Default: "0x00"},
		{Address: "0xFA", Name: "TEMP_MSB", Description: "Temperature ADC [19:12]", Access: "R", Default: "0x80"},
		{Address: "0xFB", Name: "TEMP_LSB", Description: "Temperature ADC [11:4]", Access: "R", Default: "0x00"},
		{Address: "0xFC", Name: "TEMP_XLSB", Description: "Temperature ADC [3:0] in bits 7:4", Access: "R", Default: "0x00"},
		{Address: "0xFD", Name: "HUM_MSB", Description: "Humidity ADC [15:8]", Access: "R", Default: "0x80"},
		{Address: "0xFE", Name: "HUM_LSB", Description: "Humidity ADC [7:0]", Access: "R", Default: "0x00"},

		// Factory calibration
		{Address: "0x88", Name: "CALIB00", Description: "dig_T1..dig_P9, 0x88-0x9F little endian pairs", Access: "R"},
		{Address: "0xA1", Name: "CALIB25", Description: "dig_H1", Access: "R"},
		{Address: "0xE1", Name: "CALIB26", Description: "dig_H2 LSB (0xE1-0xE2 signed)", Access: "R"},
		{Address: "0xE3", Name: "CALIB28", Description: "dig_H3", Access: "R"},
		{Address: "0xE4", Name: "CALIB29", Description: "dig_H4 [11:4]", Access: "R"},
		{Address: "0xE5", Name: "CALIB30", Description: "dig_H4 [3:0] / dig_H5 [3:0]", Access: "R",
			BitFields: []BitField{
				{Bits: "7:4", Name: "dig_H5[3:0]", Description: "Low nibble of dig_H5"},
				{Bits: "3:0", Name: "dig_H4[3:0]", Description: "Low nibble of dig_H4"},
			}},
		{Address: "0xE6", Name: "CALIB31", Description: "dig_H5 [11:4]", Access: "R"},
		{Address: "0xE7", Name: "CALIB32", Description: "dig_H6 (signed)", Access: "R"},
	}
}

// Register spans that can be read in bursts.
var dumpSpans = []struct {
	from byte
	n    int
}{
	{0x88, 26}, // calib00..calib25
	{0xD0, 1},  // id
	{0xE1, 7},  // calib26..calib32
	{0xF2, 13}, // ctrl_hum..hum_lsb
}

// DumpRegisters reads every documented register of the device at addr.
func DumpRegisters(h *I2CHost, addr uint16) (map[byte]byte, error) {
	out := make(map[byte]byte)
	for _, s := range dumpSpans {
		buf := make([]byte, s.n)
		if err := h.ReadRegs(addr, s.from, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[s.from+byte(i)] = v
		}
	}
	return out, nil
}

// SortedRegisters returns the keys of regs in ascending order.
func SortedRegisters(regs map[byte]byte) []byte {
	keys := make([]byte, 0, len(regs))
	for k := range regs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ReadRegister reads one register.
func ReadRegister(h *I2CHost, addr uint16, reg byte) (byte, error) {
	return h.ReadReg(addr, reg)
}

// WriteRegister writes one register. Only registers documented as writable
// are accepted.
func WriteRegister(h *I2CHost, addr uint16, reg, val byte) error {
	if !writable(reg) {
		return fmt.Errorf("register 0x%02X is read-only", reg)
	}
	return h.WriteReg(addr, reg, val)
}

func writable(reg byte) bool {
	name := fmt.Sprintf("0x%02X", reg)
	for _, r := range BME280RegisterMap() {
		if r.Address == name {
			return r.Access == "W" || r.Access == "RW"
		}
	}
	return false
}
