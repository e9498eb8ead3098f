package shell

import (
	"io"
	"os"

	sandshell "github.com/AnishMulay/sandfs/internal/shell"
	"github.com/AnishMulay/sandfs/servers/volume"
)

type Options struct {
	volume.Options
	In  io.Reader
	Out io.Writer
}

type runnable interface {
	Run() error
}

type shellServer struct {
	opts Options
}

func (s *shellServer) Run() error {
	vol, err := volume.Open(s.opts.Options)
	if err != nil {
		return err
	}

	runErr := sandshell.NewShell(vol.FS, s.opts.In, s.opts.Out).Run()
	if err := vol.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func Build(opts Options) runnable {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &shellServer{opts: opts}
}
