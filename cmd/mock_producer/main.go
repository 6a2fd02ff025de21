package main

import (
	"encoding/json"
	"flag"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/airq_monitor/internal/config"
	"github.com/relabs-tech/airq_monitor/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./airq_config.yaml", "path to configuration file")
	flag.Parse()

	log.Println("starting airq-monitor MQTT producer (mock)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	// 1) Connect to MQTT broker on the Pi
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientIDMock)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect error: %v", token.Error())
	}
	defer client.Disconnect(250)

	src := sensors.NewMockSource()
	ticker := time.NewTicker(time.Duration(cfg.Sensor.SampleIntervalSec) * time.Second)
	defer ticker.Stop()

	for t := range ticker.C {
		sample, err := src.Next()
		if err != nil {
			log.Printf("error from mock source: %v", err)
			continue
		}

		payload, err := json.Marshal(sample)
		if err != nil {
			log.Printf("json marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.Topics.Reading, 0, true, payload)
		token.Wait()

		log.Printf("%s published reading: %+v", t.Format(time.RFC3339), sample)
	}
}
