// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

// Bus addresses, probed in this order.
const (
	AddressPrimary   uint16 = 0x76 // SDO tied to GND
	AddressSecondary uint16 = 0x77 // SDO tied to VDDIO
)

// RegChipID is the chip identification register.
const RegChipID = 0xD0

// ChipID is the value of RegChipID on a BME280.
const ChipID = 0x60

// Register map (datasheet section 5.3).
const (
	regCalibPrimary   = 0x88 // calib00..calib25, 0x88..0xA1
	regReset          = 0xE0
	regCalibSecondary = 0xE1 // calib26..calib32, 0xE1..0xE7
	regCtrlHum        = 0xF2
	regStatus         = 0xF3
	regCtrlMeas       = 0xF4
	regConfig         = 0xF5
	regData           = 0xF7 // press_msb..hum_lsb, 0xF7..0xFE
)

const (
	calibPrimaryLen   = 26
	calibSecondaryLen = 7
	dataLen           = 8
)

const (
	resetCommand = 0xB6

	statusMeasuring = 0x08
	statusImUpdate  = 0x01

	// x1 oversampling on every channel.
	osrsX1 = 0x01

	modeSleep  = 0x00
	modeForced = 0x01

	// ctrl_meas: osrs_t[7:5] osrs_p[4:2] mode[1:0]
	ctrlMeasSleep  = osrsX1<<5 | osrsX1<<2 | modeSleep
	ctrlMeasForced = osrsX1<<5 | osrsX1<<2 | modeForced

	// config: IIR filter off, SPI 3-wire off. t_sb is ignored in forced mode.
	configDefault = 0x00
)
