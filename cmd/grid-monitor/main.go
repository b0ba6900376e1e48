// Command grid-monitor watches mains presence on an ADC channel, drives a
// backup relay and reports over MQTT.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newApp().rootCmd().Execute(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}
