// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/airq_monitor/internal/env"
)

// BME680 register addresses.
const (
	regStatus      = 0x73
	regReset       = 0xE0
	regChipID      = 0xD0
	regConfig      = 0x75
	regCtrlMeas    = 0x74
	regCtrlHum     = 0x72
	regCtrlGas1    = 0x71
	regCtrlGas0    = 0x70
	regGasWait0    = 0x64
	regResHeat0    = 0x5A
	regIdacHeat0   = 0x50
	regMeasStatus0 = 0x1D

	regCoeff1      = 0x89 // 25 bytes
	regCoeff2      = 0xE1 // 16 bytes
	regResHeatVal  = 0x00
	regResHeatRng  = 0x02
	regRangeSwErr  = 0x04

	chipIDBME680 = 0x61
	cmdSoftReset = 0xB6

	// meas_status_0 bits
	bitNewData = 0x80
	// gas_r_lsb bits
	bitGasValid   = 0x20
	bitHeatStable = 0x10
)

// Oversampling and filter settings applied at init. The 2x/2x/2x + filter 3
// profile mirrors the vendor-recommended indoor monitoring setup.
const (
	osrsHum2x   = 0x02
	osrsTemp2x  = 0x02
	osrsPress2x = 0x02
	iirFilter3  = 0x02
	modeForced  = 0x01
)

// Gas resistance range constants from the datasheet floating-point formula.
var (
	gasRangeC1 = [16]float64{
		1, 1, 1, 1, 1, 0.99, 1, 0.992,
		1, 1, 0.998, 0.995, 1, 0.99, 1, 1,
	}
	gasRangeC2 = [16]float64{
		8000000, 4000000, 2000000, 1000000,
		499500.4995, 248262.1648, 125000, 63004.03226,
		31281.28128, 15625, 7812.5, 3906.25,
		1953.125, 976.5625, 488.28125, 244.140625,
	}
)

// calibData holds the factory calibration coefficients read from the chip.
type calibData struct {
	parT1 uint16
	parT2 int16
	parT3 int8

	parP1  uint16
	parP2  int16
	parP3  int8
	parP4  int16
	parP5  int16
	parP6  int8
	parP7  int8
	parP8  int16
	parP9  int16
	parP10 uint8

	parH1 uint16
	parH2 uint16
	parH3 int8
	parH4 int8
	parH5 int8
	parH6 uint8
	parH7 int8

	parGH1 int8
	parGH2 int16
	parGH3 int8

	resHeatRange uint8
	resHeatVal   int8
	rangeSwErr   int8
}

// Opts configures the gas heater profile.
type Opts struct {
	HeaterTempC      int // heater setpoint, typically 320
	HeaterDurationMs int // heating time before the gas measurement, typically 150
}

// DefaultOpts is the profile the original sensor deployment used.
var DefaultOpts = Opts{HeaterTempC: 320, HeaterDurationMs: 150}

// BME680 drives a Bosch BME680 over I2C in forced mode.
type BME680 struct {
	bus  i2c.BusCloser
	dev  *i2c.Dev
	cal  calibData
	opts Opts

	// last compensated temperature, used as ambient for the heater model
	ambientTemp float64
}

// NewBME680 opens the I2C bus, verifies the chip, reads calibration data,
// and configures oversampling and the gas heater. busName "" selects the
// first available bus.
func NewBME680(busName string, addr uint16, opts Opts) (*BME680, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bme680: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("bme680: I2C open (%q): %w", busName, err)
	}

	d := &BME680{
		bus:         bus,
		dev:         &i2c.Dev{Bus: bus, Addr: addr},
		opts:        opts,
		ambientTemp: 25,
	}

	if err := d.init(); err != nil {
		bus.Close()
		return nil, err
	}

	log.Printf("bme680: sensor initialized at 0x%02X, heater %d°C/%dms",
		addr, opts.HeaterTempC, opts.HeaterDurationMs)
	return d, nil
}

func (d *BME680) init() error {
	if err := d.writeReg(regReset, cmdSoftReset); err != nil {
		return fmt.Errorf("bme680: soft reset: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	id, err := d.readReg(regChipID)
	if err != nil {
		return fmt.Errorf("bme680: read chip id: %w", err)
	}
	if id != chipIDBME680 {
		return fmt.Errorf("bme680: unexpected chip id 0x%02X (want 0x%02X), check wiring and I2C address", id, chipIDBME680)
	}

	if err := d.readCalibration(); err != nil {
		return err
	}

	// Humidity, then temperature+pressure oversampling (sleep mode for now).
	if err := d.writeReg(regCtrlHum, osrsHum2x); err != nil {
		return fmt.Errorf("bme680: set humidity oversampling: %w", err)
	}
	if err := d.writeReg(regCtrlMeas, osrsTemp2x<<5|osrsPress2x<<2); err != nil {
		return fmt.Errorf("bme680: set temp/press oversampling: %w", err)
	}
	if err := d.writeReg(regConfig, iirFilter3<<2); err != nil {
		return fmt.Errorf("bme680: set IIR filter: %w", err)
	}

	// Gas heater profile 0.
	if err := d.writeReg(regGasWait0, encodeGasWait(d.opts.HeaterDurationMs)); err != nil {
		return fmt.Errorf("bme680: set gas wait: %w", err)
	}
	if err := d.writeReg(regResHeat0, d.heaterSetpoint(float64(d.opts.HeaterTempC))); err != nil {
		return fmt.Errorf("bme680: set heater resistance: %w", err)
	}
	// run_gas with heater profile 0 selected.
	if err := d.writeReg(regCtrlGas1, 1<<4); err != nil {
		return fmt.Errorf("bme680: enable gas measurement: %w", err)
	}
	return nil
}

// readCalibration pulls both coefficient blocks plus the heater trim
// registers and unpacks them per the datasheet layout.
func (d *BME680) readCalibration() error {
	coeff := make([]byte, 0, 41)

	block1 := make([]byte, 25)
	if err := d.readRegs(regCoeff1, block1); err != nil {
		return fmt.Errorf("bme680: read coefficient block 1: %w", err)
	}
	block2 := make([]byte, 16)
	if err := d.readRegs(regCoeff2, block2); err != nil {
		return fmt.Errorf("bme680: read coefficient block 2: %w", err)
	}
	coeff = append(coeff, block1...)
	coeff = append(coeff, block2...)

	u16le := func(i int) uint16 { return uint16(coeff[i]) | uint16(coeff[i+1])<<8 }
	s16le := func(i int) int16 { return int16(u16le(i)) }

	c := &d.cal
	c.parT1 = u16le(33)
	c.parT2 = s16le(1)
	c.parT3 = int8(coeff[3])

	c.parP1 = u16le(5)
	c.parP2 = s16le(7)
	c.parP3 = int8(coeff[9])
	c.parP4 = s16le(11)
	c.parP5 = s16le(13)
	c.parP6 = int8(coeff[16])
	c.parP7 = int8(coeff[15])
	c.parP8 = s16le(19)
	c.parP9 = s16le(21)
	c.parP10 = coeff[23]

	// H1/H2 share a nibble in register 0xE2.
	c.parH1 = uint16(coeff[27])<<4 | uint16(coeff[26])&0x0F
	c.parH2 = uint16(coeff[25])<<4 | uint16(coeff[26])>>4
	c.parH3 = int8(coeff[28])
	c.parH4 = int8(coeff[29])
	c.parH5 = int8(coeff[30])
	c.parH6 = coeff[31]
	c.parH7 = int8(coeff[32])

	c.parGH1 = int8(coeff[37])
	c.parGH2 = s16le(35)
	c.parGH3 = int8(coeff[38])

	rng, err := d.readReg(regResHeatRng)
	if err != nil {
		return fmt.Errorf("bme680: read res_heat_range: %w", err)
	}
	c.resHeatRange = (rng & 0x30) >> 4

	val, err := d.readReg(regResHeatVal)
	if err != nil {
		return fmt.Errorf("bme680: read res_heat_val: %w", err)
	}
	c.resHeatVal = int8(val)

	sw, err := d.readReg(regRangeSwErr)
	if err != nil {
		return fmt.Errorf("bme680: read range_sw_err: %w", err)
	}
	c.rangeSwErr = int8(sw&0xF0) >> 4

	return nil
}

// Next triggers one forced-mode measurement and returns the compensated
// sample. Implements EnvSource.
func (d *BME680) Next() (env.Sample, error) {
	// Re-arm forced mode; oversampling bits must be rewritten with it.
	if err := d.writeReg(regCtrlMeas, osrsTemp2x<<5|osrsPress2x<<2|modeForced); err != nil {
		return env.Sample{}, fmt.Errorf("bme680: trigger measurement: %w", err)
	}

	// TPHG at 2x oversampling plus the heater profile stays well under this.
	deadline := time.Now().Add(500 * time.Millisecond)
	buf := make([]byte, 15)
	for {
		if err := d.readRegs(regMeasStatus0, buf); err != nil {
			return env.Sample{}, fmt.Errorf("bme680: read measurement: %w", err)
		}
		if buf[0]&bitNewData != 0 {
			break
		}
		if time.Now().After(deadline) {
			return env.Sample{}, fmt.Errorf("bme680: measurement timed out")
		}
		time.Sleep(10 * time.Millisecond)
	}

	pressADC := uint32(buf[2])<<12 | uint32(buf[3])<<4 | uint32(buf[4])>>4
	tempADC := uint32(buf[5])<<12 | uint32(buf[6])<<4 | uint32(buf[7])>>4
	humADC := uint32(buf[8])<<8 | uint32(buf[9])
	gasADC := uint32(buf[13])<<2 | uint32(buf[14])>>6
	gasRange := buf[14] & 0x0F
	heatStable := buf[14]&bitHeatStable != 0
	gasValid := buf[14]&bitGasValid != 0

	tempC, tFine := d.compensateTemperature(tempADC)
	d.ambientTemp = tempC

	s := env.Sample{
		Temperature: tempC,
		Pressure:    d.compensatePressure(pressADC, tFine) / 100, // Pa → hPa
		Humidity:    d.compensateHumidity(humADC, tempC),
		HeatStable:  heatStable && gasValid,
		Timestamp:   time.Now(),
	}
	if gasValid {
		s.GasResistance = d.compensateGas(gasADC, gasRange)
	}
	return s, nil
}

// compensateTemperature converts the raw ADC value to °C and returns the
// intermediate t_fine the other channels need.
func (d *BME680) compensateTemperature(adc uint32) (float64, float64) {
	c := &d.cal
	var1 := (float64(adc)/16384 - float64(c.parT1)/1024) * float64(c.parT2)
	half := float64(adc)/131072 - float64(c.parT1)/8192
	var2 := half * half * float64(c.parT3) * 16
	tFine := var1 + var2
	return tFine / 5120, tFine
}

// compensatePressure converts the raw ADC value to Pa.
func (d *BME680) compensatePressure(adc uint32, tFine float64) float64 {
	c := &d.cal
	var1 := tFine/2 - 64000
	var2 := var1 * var1 * float64(c.parP6) / 131072
	var2 += var1 * float64(c.parP5) * 2
	var2 = var2/4 + float64(c.parP4)*65536
	var1 = (float64(c.parP3)*var1*var1/16384 + float64(c.parP2)*var1) / 524288
	var1 = (1 + var1/32768) * float64(c.parP1)
	if var1 == 0 {
		return 0
	}
	press := 1048576 - float64(adc)
	press = (press - var2/4096) * 6250 / var1
	var1 = float64(c.parP9) * press * press / 2147483648
	var2 = press * float64(c.parP8) / 32768
	var3 := (press / 256) * (press / 256) * (press / 256) * float64(c.parP10) / 131072
	return press + (var1+var2+var3+float64(c.parP7)*128)/16
}

// compensateHumidity converts the raw ADC value to %RH, clamped to 0..100.
func (d *BME680) compensateHumidity(adc uint32, tempC float64) float64 {
	c := &d.cal
	var1 := float64(adc) - (float64(c.parH1)*16 + float64(c.parH3)/2*tempC)
	var2 := var1 * (float64(c.parH2) / 262144 *
		(1 + float64(c.parH4)/16384*tempC + float64(c.parH5)/1048576*tempC*tempC))
	var3 := float64(c.parH6) / 16384
	var4 := float64(c.parH7) / 2097152
	hum := var2 + (var3+var4*tempC)*var2*var2

	switch {
	case hum > 100:
		return 100
	case hum < 0:
		return 0
	default:
		return hum
	}
}

// compensateGas converts the raw gas ADC value and range to Ω.
func (d *BME680) compensateGas(adc uint32, gasRange byte) float64 {
	var1 := (1340 + 5*float64(d.cal.rangeSwErr)) * gasRangeC1[gasRange]
	return var1 * gasRangeC2[gasRange] / (float64(adc) - 512 + var1)
}

// heaterSetpoint computes the res_heat register value for a target heater
// temperature, using the chip's heater trim and the last ambient reading.
func (d *BME680) heaterSetpoint(targetC float64) byte {
	c := &d.cal
	if targetC > 400 { // datasheet cap
		targetC = 400
	}
	var1 := float64(c.parGH1)/16 + 49
	var2 := float64(c.parGH2)/32768*0.0005 + 0.00235
	var3 := float64(c.parGH3) / 1024
	var4 := var1 * (1 + var2*targetC)
	var5 := var4 + var3*d.ambientTemp
	res := 3.4 * (var5*(4/(4+float64(c.resHeatRange)))*
		(1/(1+float64(c.resHeatVal)*0.002)) - 25)
	return byte(res)
}

// encodeGasWait packs a millisecond duration into the gas_wait register
// format: a 6-bit mantissa with a x1/x4/x16/x64 multiplier.
func encodeGasWait(ms int) byte {
	if ms < 0 {
		ms = 0
	}
	if ms > 4032 { // 63 * 64, the representable maximum
		ms = 4032
	}
	var factor byte
	for ms > 63 {
		ms /= 4
		factor++
	}
	return byte(ms) | factor<<6
}

// Close releases the I2C bus.
func (d *BME680) Close() error {
	return d.bus.Close()
}

func (d *BME680) readReg(reg byte) (byte, error) {
	var buf [1]byte
	if err := d.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *BME680) readRegs(reg byte, buf []byte) error {
	return d.dev.Tx([]byte{reg}, buf)
}

func (d *BME680) writeReg(reg, value byte) error {
	return d.dev.Tx([]byte{reg, value}, nil)
}
