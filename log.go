package auctionhouse

import (
	"fmt"
	"io"

	"github.com/btcsuite/btclog"
	"github.com/openassets/auctionhouse/httpapi"
	"github.com/openassets/auctionhouse/market"
	"github.com/openassets/auctionhouse/marketdb"
)

// Subsystem defines the sub system name of the daemon itself.
const Subsystem = "AUCD"

var log = btclog.Disabled

// SetupLoggers initializes the loggers of all subsystems, writing to the
// given writer at the given level.
func SetupLoggers(w io.Writer, level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	backend := btclog.NewBackend(w)
	newLogger := func(subsystem string) btclog.Logger {
		logger := backend.Logger(subsystem)
		logger.SetLevel(lvl)
		return logger
	}

	log = newLogger(Subsystem)
	market.UseLogger(newLogger(market.Subsystem))
	marketdb.UseLogger(newLogger(marketdb.Subsystem))
	httpapi.UseLogger(newLogger(httpapi.Subsystem))

	return nil
}
