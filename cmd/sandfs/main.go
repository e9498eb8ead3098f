package main

import (
	"flag"
	"log"

	mcpserver "github.com/AnishMulay/sandfs/servers/mcp"
	shellserver "github.com/AnishMulay/sandfs/servers/shell"
	"github.com/AnishMulay/sandfs/servers/volume"
)

func main() {
	var (
		mode       = flag.String("mode", "shell", "Front end to run (shell|mcp)")
		configPath = flag.String("config", "sandfs.yaml", "Path to the YAML config, created with defaults if missing")
		logLevel   = flag.String("log-level", "", "Override the configured log level")
	)
	flag.Parse()

	vopts := volume.Options{ConfigPath: *configPath, LogLevel: *logLevel}

	switch *mode {
	case "shell":
		server := shellserver.Build(shellserver.Options{Options: vopts})
		if err := server.Run(); err != nil {
			log.Fatalf("Shell failed: %v", err)
		}
	case "mcp":
		server := mcpserver.Build(mcpserver.Options{Options: vopts})
		if err := server.Run(); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}
	default:
		log.Fatalf("Unknown mode: %s", *mode)
	}
}
