package main

import (
	"log"

	"github.com/anoixa/shock-panel/cmd"
	"github.com/anoixa/shock-panel/config"
)

func main() {
	log.Printf("shock-panel %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
