// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/relabs-tech/airq_monitor/internal/config"
	"github.com/relabs-tech/airq_monitor/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./airq_config.yaml", "path to configuration file")
	flag.Parse()

	log.Println("starting BME680 register debug tool (standalone)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	dev, err := sensors.NewBME680(cfg.Sensor.I2CBus, cfg.Sensor.I2CAddr, sensors.Opts{
		HeaterTempC:      cfg.Sensor.HeaterTempC,
		HeaterDurationMs: cfg.Sensor.HeaterDurationMs,
	})
	if err != nil {
		log.Fatalf("failed to initialize BME680: %v", err)
	}
	defer dev.Close()

	values, err := dev.DumpRegisters()
	if err != nil {
		log.Fatalf("register dump failed: %v", err)
	}

	regs := sensors.BME680RegisterMap()
	sort.Slice(regs, func(i, j int) bool { return regs[i].Address < regs[j].Address })

	for _, info := range regs {
		v, ok := values[info.Address]
		if !ok {
			continue
		}
		fmt.Printf("0x%02X %-14s = 0x%02X  %s\n", info.Address, info.Name, v, info.Description)
		for _, bf := range info.BitFields {
			fmt.Printf("      [%s] %-18s %s\n", bf.Bits, bf.Name, bf.Description)
		}
	}
}
