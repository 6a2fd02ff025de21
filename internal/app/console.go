package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/airq_monitor/internal/airquality"
	"github.com/relabs-tech/airq_monitor/internal/comfort"
	"github.com/relabs-tech/airq_monitor/internal/config"
	"github.com/relabs-tech/airq_monitor/internal/env"
)

func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTT.Broker)

	calc := comfort.NewCalculator()

	// Subscribe to raw readings
	readingToken := client.Subscribe(cfg.Topics.Reading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: reading unmarshal error: %v", err)
			return
		}

		_, humLabel := calc.AssessHumidity(s.Humidity)
		_, pressLabel := calc.AssessPressure(s.Pressure)
		feels := comfort.HeatIndex(s.Temperature, s.Humidity)
		dew := comfort.DewPoint(s.Temperature, s.Humidity)
		_, overall := calc.Overall(s.Temperature, s.Humidity, s.Pressure)

		fmt.Printf(
			"[ENV]  T=%5.1fC (feels %5.1fC, %s)  RH=%4.1f%% (%s, dew %4.1fC)  P=%7.1fhPa (%s)  gas=%8.0fΩ stable=%v  comfort=%s\n",
			s.Temperature, feels, calc.AssessTemperature(s.Temperature),
			s.Humidity, humLabel, dew,
			s.Pressure, pressLabel,
			s.GasResistance, s.HeatStable,
			overall,
		)
	})
	readingToken.Wait()
	if readingToken.Error() != nil {
		return readingToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.Topics.Reading)

	// Subscribe to quality verdicts
	verdictToken := client.Subscribe(cfg.Topics.Verdict, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v airquality.Verdict
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("console: verdict unmarshal error: %v", err)
			return
		}

		fmt.Printf("[AQ ]  index=%d  %s\n", v.Index, v.Label)
	})
	verdictToken.Wait()
	if verdictToken.Error() != nil {
		return verdictToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.Topics.Verdict)

	// Subscribe to baseline commits
	baseToken := client.Subscribe(cfg.Topics.Baseline, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var b baselineMsg
		if err := json.Unmarshal(msg.Payload(), &b); err != nil {
			log.Printf("console: baseline unmarshal error: %v", err)
			return
		}

		fmt.Printf("[BASE] baseline=%.0fΩ committed=%s age=%.1fh\n",
			b.BaselineOhms, b.CommittedAt, b.AgeHours)
	})
	baseToken.Wait()
	if baseToken.Error() != nil {
		return baseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.Topics.Baseline)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
