package main

import (
	"topicmon/cmd/handlers"
	"topicmon/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
