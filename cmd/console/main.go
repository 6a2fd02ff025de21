package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/airq_monitor/internal/app"
	"github.com/relabs-tech/airq_monitor/internal/config"
)

func main() {
	configPath := flag.String("config", "./airq_config.yaml", "path to configuration file")
	flag.Parse()

	log.Println("starting airq-monitor console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
