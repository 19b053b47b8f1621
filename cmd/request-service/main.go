package main

import (
	"log"

	"github.com/wifi-portal/request-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
