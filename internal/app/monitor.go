// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/airq_monitor/internal/airquality"
	"github.com/relabs-tech/airq_monitor/internal/baseline"
	"github.com/relabs-tech/airq_monitor/internal/config"
	"github.com/relabs-tech/airq_monitor/internal/datalog"
	"github.com/relabs-tech/airq_monitor/internal/env"
	"github.com/relabs-tech/airq_monitor/internal/sensors"
)

// baselineMsg is the payload published on the baseline topic after every
// commit and on startup adoption.
type baselineMsg struct {
	BaselineOhms float64 `json:"baseline_ohms"`
	CommittedAt  string  `json:"committed_at"`
	AgeHours     float64 `json:"age_hours"`
}

func RunMonitor() error {
	log.Println("starting airq-monitor producer (BME680 → MQTT)")

	cfg := config.Get()

	// --- Choose environment source (mock vs real BME680) ---
	var src sensors.EnvSource
	if cfg.Sensor.Mock {
		log.Println("monitor: using mock environment source")
		src = sensors.NewMockSource()
	} else {
		dev, err := sensors.NewBME680(cfg.Sensor.I2CBus, cfg.Sensor.I2CAddr, sensors.Opts{
			HeaterTempC:      cfg.Sensor.HeaterTempC,
			HeaterDurationMs: cfg.Sensor.HeaterDurationMs,
		})
		if err != nil {
			log.Fatalf("failed to initialize BME680: %v", err)
			return err
		}
		defer dev.Close()
		log.Printf("monitor: BME680 initialized at 0x%02X", cfg.Sensor.I2CAddr)
		src = dev
	}

	// --- Calibration pipeline ---
	store := baseline.NewStore(cfg.Calibration.BaselineFile,
		time.Duration(cfg.Calibration.BaselineMaxAgeSec)*time.Second)
	cal := airquality.NewCalibrator(cfg.Thresholds(), store)
	log.Printf("monitor: calibrator starting in phase %s", cal.Phase())

	// --- CSV log ---
	csv, err := datalog.NewWriter(cfg.DataLogging.CSVFilename, cfg.DataLogging.FlushImmediately)
	if err != nil {
		log.Fatalf("failed to open CSV log: %v", err)
		return err
	}
	defer csv.Close()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientIDMonitor)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect error: %v", token.Error())
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("monitor: connected to MQTT, starting sample loop")

	// Republish an adopted baseline so subscribers see it immediately.
	lastPhase := cal.Phase()
	if info, ok := cal.Baseline(); ok {
		publishBaseline(client, cfg.Topics.Baseline, info)
	}

	ticker := time.NewTicker(time.Duration(cfg.Sensor.SampleIntervalSec) * time.Second)
	defer ticker.Stop()

	for t := range ticker.C {
		sample, err := src.Next()
		if err != nil {
			log.Printf("monitor: sensor read error: %v", err)
			continue
		}

		// 1) Raw reading
		if payload, err := json.Marshal(sample); err != nil {
			log.Printf("monitor: reading marshal error: %v", err)
		} else {
			if token := client.Publish(cfg.Topics.Reading, 0, true, payload); token.Wait() && token.Error() != nil {
				log.Printf("MQTT publish error (reading): %v", token.Error())
				continue
			}
		}

		// 2) Calibration + quality verdict
		verdict, err := processReading(cal, sample)
		if err != nil {
			log.Printf("monitor: discarding reading: %v", err)
			continue
		}

		if payload, err := json.Marshal(verdict); err != nil {
			log.Printf("monitor: verdict marshal error: %v", err)
		} else {
			if token := client.Publish(cfg.Topics.Verdict, 0, true, payload); token.Wait() && token.Error() != nil {
				log.Printf("MQTT publish error (verdict): %v", token.Error())
				continue
			}
		}

		// 3) Baseline, republished on every phase change
		if phase := cal.Phase(); phase != lastPhase {
			log.Printf("monitor: calibration phase %s -> %s", lastPhase, phase)
			lastPhase = phase
			if info, ok := cal.Baseline(); ok {
				publishBaseline(client, cfg.Topics.Baseline, info)
			}
		}

		// 4) CSV log
		if err := csv.Append(sample, verdict); err != nil {
			log.Printf("monitor: CSV append error: %v", err)
		} else if rotated, err := csv.RotateIfNeeded(cfg.DataLogging.MaxSizeMB); err != nil {
			log.Printf("monitor: CSV rotate error: %v", err)
		} else if rotated {
			log.Printf("monitor: rotated CSV log at %.1f MB", cfg.DataLogging.MaxSizeMB)
		}

		log.Printf("%s tick: T=%.1fC RH=%.1f%% P=%.1fhPa gas=%.0fΩ stable=%v | %s",
			t.Format(time.RFC3339),
			sample.Temperature, sample.Humidity, sample.Pressure,
			sample.GasResistance, sample.HeatStable,
			verdict.Label,
		)
	}
	return nil
}

// processReading scores one sample. A reading without a valid gas
// measurement (the heater is still warming up, or the chip flagged the
// conversion invalid) carries a zero resistance; it never enters the state
// machine, but the cycle still gets a verdict so the T/H/P row, the MQTT
// publish, and the CSV log continue uninterrupted.
func processReading(cal *airquality.Calibrator, s env.Sample) (airquality.Verdict, error) {
	if s.GasResistance <= 0 {
		return airquality.Verdict{Index: airquality.LevelCalibrating, Label: "Gas heating"}, nil
	}
	return cal.Process(s)
}

func publishBaseline(client mqtt.Client, topic string, info airquality.BaselineInfo) {
	msg := baselineMsg{
		BaselineOhms: info.BaselineOhms,
		CommittedAt:  info.CommittedAt.Format(time.RFC3339),
		AgeHours:     info.AgeHours,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("monitor: baseline marshal error: %v", err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (baseline): %v", token.Error())
	}
}
