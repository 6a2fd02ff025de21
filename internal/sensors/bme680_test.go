package sensors

import (
	"testing"
	"time"
)

func TestEncodeGasWait(t *testing.T) {
	cases := []struct {
		ms   int
		want byte
	}{
		{0, 0x00},
		{-5, 0x00},
		{63, 0x3F},          // largest x1 mantissa
		{64, 0x40 | 16},     // rolls into x4
		{150, 0x40 | 37},    // default heater duration
		{4032, 0xC0 | 0x3F}, // representable maximum
		{9999, 0xC0 | 0x3F}, // clamped
	}
	for _, c := range cases {
		if got := encodeGasWait(c.ms); got != c.want {
			t.Errorf("encodeGasWait(%d) = 0x%02X, want 0x%02X", c.ms, got, c.want)
		}
	}
}

func TestBME680RegisterMapHasDriverRegisters(t *testing.T) {
	byAddr := make(map[byte]RegisterInfo)
	for _, info := range BME680RegisterMap() {
		if _, dup := byAddr[info.Address]; dup {
			t.Errorf("duplicate register address 0x%02X", info.Address)
		}
		byAddr[info.Address] = info
	}
	for _, addr := range []byte{regChipID, regReset, regCtrlHum, regCtrlMeas, regConfig, regCtrlGas1, regGasWait0, regResHeat0, regMeasStatus0} {
		if _, ok := byAddr[addr]; !ok {
			t.Errorf("register 0x%02X missing from map", addr)
		}
	}
}

func TestMockSourceWarmsUp(t *testing.T) {
	m := &mockSource{start: time.Now()}
	s, err := m.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.HeatStable {
		t.Error("expected heater unstable right after start")
	}
	if s.GasResistance != 0 {
		t.Errorf("expected no gas reading during warm-up, got %f", s.GasResistance)
	}

	m.start = time.Now().Add(-2 * mockWarmUp)
	s, err = m.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !s.HeatStable {
		t.Error("expected heater stable after warm-up")
	}
	if s.GasResistance < 100000 || s.GasResistance > 140000 {
		t.Errorf("gas resistance %f outside the synthetic plateau", s.GasResistance)
	}
	if s.Temperature < 15 || s.Temperature > 30 {
		t.Errorf("temperature %f outside the synthetic range", s.Temperature)
	}
}
