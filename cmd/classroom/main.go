package main

import (
	"github.com/NaveenKathirM/smartclassroom/cmd/classroom/cmd"
	"github.com/NaveenKathirM/smartclassroom/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
