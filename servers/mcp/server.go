package mcp

import (
	"github.com/AnishMulay/sandfs/internal/log_service"
	"github.com/AnishMulay/sandfs/internal/mcp_server"
	"github.com/AnishMulay/sandfs/servers/volume"
)

type Options struct {
	volume.Options
	Version string
}

type runnable interface {
	Run() error
}

type mcpServer struct {
	opts Options
}

// Run serves until the client closes stdin.
func (s *mcpServer) Run() error {
	vol, err := volume.Open(s.opts.Options)
	if err != nil {
		return err
	}

	if rerr := vol.FS.RecoveryError(); rerr != nil {
		vol.Logs.Warn(log_service.LogEvent{
			Message:  "Serving an empty volume after failed restore",
			Metadata: map[string]any{"error": rerr.Error()},
		})
	}

	srv := mcp_server.NewMCPServer(vol.FS, vol.Logs, s.opts.Version)
	runErr := srv.Serve()
	if err := vol.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func Build(opts Options) runnable {
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	return &mcpServer{opts: opts}
}
