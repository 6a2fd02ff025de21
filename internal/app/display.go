// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/airq_monitor/internal/airquality"
	"github.com/relabs-tech/airq_monitor/internal/config"
	"github.com/relabs-tech/airq_monitor/internal/env"
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	sample     env.Sample
	haveSample bool

	verdict     airquality.Verdict
	haveVerdict bool
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.Display.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The SSD1306 driver talks to the panel at its fixed 0x3C address.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := showSplash(dev, cfg.Display.Title); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	// Data storage
	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTT.Broker)

	readingToken := client.Subscribe(cfg.Topics.Reading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: reading unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.sample = s
		data.haveSample = true
		data.mu.Unlock()
	})
	readingToken.Wait()
	if readingToken.Error() != nil {
		return readingToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.Topics.Reading)

	verdictToken := client.Subscribe(cfg.Topics.Verdict, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v airquality.Verdict
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("display: verdict unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.verdict = v
		data.haveVerdict = true
		data.mu.Unlock()
	})
	verdictToken.Wait()
	if verdictToken.Error() != nil {
		return verdictToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.Topics.Verdict)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.Display.UpdateIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		// Read data without copying the mutex
		data.mu.RLock()
		snapshot := DisplayData{
			sample:      data.sample,
			haveSample:  data.haveSample,
			verdict:     data.verdict,
			haveVerdict: data.haveVerdict,
		}
		data.mu.RUnlock()

		if err := updateReadingsDisplay(dev, &snapshot); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func updateReadingsDisplay(dev *ssd1306.Dev, data *DisplayData) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !data.haveSample {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("BME680"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	s := data.sample

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("T:%5.1fC H:%4.1f%%", s.Temperature, s.Humidity)))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("P:%7.1f hPa", s.Pressure)))

	drawer.Dot = fixed.P(0, 39)
	if s.HeatStable {
		drawer.DrawBytes([]byte(fmt.Sprintf("G:%7.0f Ohm", s.GasResistance)))
	} else {
		drawer.DrawBytes([]byte("G: heating..."))
	}

	drawer.Dot = fixed.P(0, 52)
	if data.haveVerdict {
		drawer.DrawBytes([]byte(fmt.Sprintf("AQ: %s", data.verdict.Label)))
	} else {
		drawer.DrawBytes([]byte("AQ: ---"))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev, title string) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte(title))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Air Quality"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("Monitor"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
