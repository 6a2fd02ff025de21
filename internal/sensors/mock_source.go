// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/airq_monitor/internal/env"
)

// mockWarmUp is how long the synthetic heater takes to stabilize.
const mockWarmUp = 10 * time.Second

type mockSource struct {
	start time.Time
}

// NewMockSource creates a mock environment source that generates
// smooth changing values without any hardware attached.
func NewMockSource() EnvSource {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() (env.Sample, error) {
	now := time.Now()
	elapsed := now.Sub(m.start).Seconds()

	s := env.Sample{
		Temperature: 22 + 3*math.Sin(elapsed/60),
		Humidity:    45 + 10*math.Cos(elapsed/90),
		Pressure:    1013 + 2*math.Sin(elapsed/300),
		HeatStable:  elapsed >= mockWarmUp.Seconds(),
		Timestamp:   now,
	}
	if s.HeatStable {
		// Drifts slowly around a clean-air plateau.
		s.GasResistance = 120000 + 15000*math.Sin(elapsed/120)
	}
	return s, nil
}
