package main

import (
	"DadBot/src/cli"
	"log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("ERROR %v", err)
	}
}
