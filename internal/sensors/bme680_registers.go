// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "fmt"

// BitField describes one field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo carries metadata for one BME680 register.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BME680RegisterMap returns metadata for the BME680 registers the driver
// touches, for the register debug tool.
func BME680RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: regChipID, Name: "CHIP_ID", Description: "Chip identification number", Access: "R",
			BitFields: []BitField{
				{Bits: "7:0", Name: "chip_id", Description: "Fixed identifier", Values: "0x61"},
			}},
		{Address: regReset, Name: "RESET", Description: "Soft reset", Access: "W",
			BitFields: []BitField{
				{Bits: "7:0", Name: "reset", Description: "Write 0xB6 to reset the device", Values: "0xB6"},
			}},
		{Address: regStatus, Name: "STATUS", Description: "SPI memory page (unused on I2C)", Access: "RW"},
		{Address: regCtrlHum, Name: "CTRL_HUM", Description: "Humidity oversampling control", Access: "RW",
			BitFields: []BitField{
				{Bits: "2:0", Name: "osrs_h", Description: "Humidity oversampling", Values: "0=skip, 1=1x ... 5=16x"},
			}},
		{Address: regCtrlMeas, Name: "CTRL_MEAS", Description: "Temperature/pressure oversampling and power mode", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:5", Name: "osrs_t", Description: "Temperature oversampling", Values: "0=skip, 1=1x ... 5=16x"},
				{Bits: "4:2", Name: "osrs_p", Description: "Pressure oversampling", Values: "0=skip, 1=1x ... 5=16x"},
				{Bits: "1:0", Name: "mode", Description: "Power mode", Values: "0=sleep, 1=forced"},
			}},
		{Address: regConfig, Name: "CONFIG", Description: "IIR filter", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:2", Name: "filter", Description: "IIR filter coefficient", Values: "0=off, 1=1, 2=3, 3=7, 4=15, 5=31, 6=63, 7=127"},
			}},
		{Address: regCtrlGas0, Name: "CTRL_GAS_0", Description: "Heater control", Access: "RW",
			BitFields: []BitField{
				{Bits: "3", Name: "heat_off", Description: "Turn heater off", Values: "0=on, 1=off"},
			}},
		{Address: regCtrlGas1, Name: "CTRL_GAS_1", Description: "Gas measurement control", Access: "RW",
			BitFields: []BitField{
				{Bits: "4", Name: "run_gas", Description: "Enable gas conversions", Values: "0=off, 1=on"},
				{Bits: "3:0", Name: "nb_conv", Description: "Heater profile selector", Values: "0-9"},
			}},
		{Address: regGasWait0, Name: "GAS_WAIT_0", Description: "Heater wait time, profile 0", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:6", Name: "mult", Description: "Wait time multiplier", Values: "0=x1, 1=x4, 2=x16, 3=x64"},
				{Bits: "5:0", Name: "wait", Description: "Wait time mantissa (ms)", Values: "0-63"},
			}},
		{Address: regResHeat0, Name: "RES_HEAT_0", Description: "Heater resistance setpoint, profile 0", Access: "RW"},
		{Address: regIdacHeat0, Name: "IDAC_HEAT_0", Description: "Heater current trim, profile 0", Access: "RW"},
		{Address: regMeasStatus0, Name: "MEAS_STATUS_0", Description: "Measurement status", Access: "R",
			BitFields: []BitField{
				{Bits: "7", Name: "new_data_0", Description: "New data available"},
				{Bits: "6", Name: "gas_measuring", Description: "Gas conversion running"},
				{Bits: "5", Name: "measuring", Description: "TPH conversion running"},
				{Bits: "3:0", Name: "gas_meas_index_0", Description: "Heater profile of the stored result"},
			}},
		{Address: 0x1F, Name: "PRESS_MSB", Description: "Pressure ADC [19:12]", Access: "R"},
		{Address: 0x20, Name: "PRESS_LSB", Description: "Pressure ADC [11:4]", Access: "R"},
		{Address: 0x21, Name: "PRESS_XLSB", Description: "Pressure ADC [3:0]", Access: "R"},
		{Address: 0x22, Name: "TEMP_MSB", Description: "Temperature ADC [19:12]", Access: "R"},
		{Address: 0x23, Name: "TEMP_LSB", Description: "Temperature ADC [11:4]", Access: "R"},
		{Address: 0x24, Name: "TEMP_XLSB", Description: "Temperature ADC [3:0]", Access: "R"},
		{Address: 0x25, Name: "HUM_MSB", Description: "Humidity ADC [15:8]", Access: "R"},
		{Address: 0x26, Name: "HUM_LSB", Description: "Humidity ADC [7:0]", Access: "R"},
		{Address: 0x2A, Name: "GAS_R_MSB", Description: "Gas resistance ADC [9:2]", Access: "R"},
		{Address: 0x2B, Name: "GAS_R_LSB", Description: "Gas resistance ADC [1:0], status and range", Access: "R",
			BitFields: []BitField{
				{Bits: "7:6", Name: "gas_r", Description: "Gas resistance ADC [1:0]"},
				{Bits: "5", Name: "gas_valid_r", Description: "Gas measurement valid"},
				{Bits: "4", Name: "heat_stab_r", Description: "Heater reached its setpoint"},
				{Bits: "3:0", Name: "gas_range_r", Description: "ADC range of the gas measurement"},
			}},
	}
}

// DumpRegisters reads back every register in the map for inspection.
func (d *BME680) DumpRegisters() (map[byte]byte, error) {
	out := make(map[byte]byte)
	for _, info := range BME680RegisterMap() {
		if info.Access == "W" {
			continue
		}
		v, err := d.readReg(info.Address)
		if err != nil {
			return nil, fmt.Errorf("bme680: dump register %s (0x%02X): %w", info.Name, info.Address, err)
		}
		out[info.Address] = v
	}
	return out, nil
}
