package auctionhouse

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Run starts the daemon and blocks until it's shut down again, either by an
// interrupt signal or a startup error.
func Run(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := SetupLoggers(os.Stdout, cfg.DebugLevel); err != nil {
		return err
	}

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		return fmt.Errorf("unable to start server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	log.Infof("Received %v, shutting down", sig)
	return server.Stop()
}
