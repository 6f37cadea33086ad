package main

import (
	"log"
	"os"

	"github.com/UtsahaJoshi/stemgen/cmd/stemgen/commands"
)

func main() {
	log.SetFlags(log.LstdFlags)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
