package main

import (
	"log"

	"github.com/kilianp07/chargepoint-mqtt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
