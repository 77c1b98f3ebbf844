package auctionhouse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/openassets/auctionhouse/auction"
)

var (
	// DefaultBaseDir is the default root data directory where the daemon
	// stores its database and logs. On UNIX like systems this resolves to
	// ~/.auctionhouse.
	DefaultBaseDir = btcutil.AppDataDir("auctionhouse", false)

	// DefaultLogFilename is the default name of the daemon's log file.
	DefaultLogFilename = "auctionhoused.log"

	defaultLogLevel = "info"
	defaultDBDir    = "db"
)

const (
	defaultListenAddr = "localhost:8810"

	defaultMakerFeeBps uint32 = 250
	defaultTakerFeeBps uint32 = 300
)

// Config holds all configuration of the settlement daemon.
type Config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	BaseDir     string `long:"basedir" description:"The base directory where the daemon stores all its data"`
	ListenAddr  string `long:"listenaddr" description:"Address to listen on for HTTP API clients"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	MakerFeeBps  uint32   `long:"makerfeebps" description:"Maker fee rate in basis points, deducted from the seller's proceeds"`
	TakerFeeBps  uint32   `long:"takerfeebps" description:"Taker fee rate in basis points, charged on top of the price"`
	FeeRecipient string   `long:"feerecipient" description:"Identity all maker and taker fees are paid to"`
	Tokens       []string `long:"token" description:"Payment token medium to accept besides the native one; can be specified multiple times"`
}

// DefaultConfig returns the daemon's default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:      DefaultBaseDir,
		ListenAddr:   defaultListenAddr,
		DebugLevel:   defaultLogLevel,
		MakerFeeBps:  defaultMakerFeeBps,
		TakerFeeBps:  defaultTakerFeeBps,
		FeeRecipient: "fee-pool",
	}
}

// Validate makes sure the configuration is sane and fills in derived values.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("basedir must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listenaddr must not be empty")
	}
	if c.FeeRecipient == "" {
		return fmt.Errorf("feerecipient must not be empty")
	}
	if c.MakerFeeBps >= 10_000 || c.TakerFeeBps >= 10_000 {
		return fmt.Errorf("fee rates must be below 10000 basis " +
			"points")
	}

	for _, token := range c.Tokens {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("token mediums must not be empty")
		}
	}

	return nil
}

// DBDir returns the directory the auction database lives in.
func (c *Config) DBDir() string {
	return filepath.Join(c.BaseDir, defaultDBDir)
}

// TokenMediums returns the configured payment tokens as typed mediums.
func (c *Config) TokenMediums() []auction.Medium {
	mediums := make([]auction.Medium, 0, len(c.Tokens))
	for _, token := range c.Tokens {
		mediums = append(mediums, auction.Medium(token))
	}
	return mediums
}
