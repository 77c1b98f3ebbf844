// Package auctionhouse assembles the settlement engine into a runnable
// daemon: a persistent auction store, the market manager on top of it and
// the HTTP API in front. In standalone mode the asset, payment and royalty
// collaborators are backed by the in-memory dev ledger.
package auctionhouse

import (
	"fmt"
	"sync"

	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/httpapi"
	"github.com/openassets/auctionhouse/internal/devledger"
	"github.com/openassets/auctionhouse/market"
	"github.com/openassets/auctionhouse/marketdb"
	"github.com/openassets/auctionhouse/payment"
	"github.com/openassets/auctionhouse/terms"
)

// Server is the main auction house daemon.
type Server struct {
	cfg *Config

	db      *marketdb.DB
	ledger  *devledger.Ledger
	manager *market.Manager
	api     *httpapi.Server

	wg      sync.WaitGroup
	started sync.Once
	stopped sync.Once
}

// NewServer creates a new daemon instance from the given config. Nothing is
// opened or bound until Start is called.
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg: cfg,
	}
}

// Start opens the database, wires up the manager and begins serving the
// HTTP API.
func (s *Server) Start() error {
	var startErr error
	s.started.Do(func() {
		startErr = s.start()
	})
	return startErr
}

func (s *Server) start() error {
	log.Infof("Starting auction house daemon version=%v", Version())

	db, err := marketdb.New(s.cfg.DBDir())
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	s.db = db

	mktTerms := &terms.MarketTerms{
		MakerFeeRateBps: s.cfg.MakerFeeBps,
		TakerFeeRateBps: s.cfg.TakerFeeBps,
		FeeRecipient:    auction.Identity(s.cfg.FeeRecipient),
		SupportedTokens: s.cfg.TokenMediums(),
	}

	s.ledger = devledger.New()
	s.manager = market.NewManager(&market.ManagerConfig{
		Store:    db,
		Assets:   s.ledger,
		Payments: s.ledger,
		PaymentRegistry: payment.NewStaticRegistry(
			mktTerms.SupportedTokens...,
		),
		Royalties:    s.ledger,
		FeeSchedule:  mktTerms.FeeSchedule(),
		FeeRecipient: mktTerms.FeeRecipient,
		Clock:        market.SystemClock{},
	})

	s.api = httpapi.NewServer(&httpapi.Config{
		ListenAddr: s.cfg.ListenAddr,
		Manager:    s.manager,
		Terms:      mktTerms,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.api.Start(); err != nil {
			log.Errorf("HTTP API server exited with error: %v",
				err)
		}
	}()

	log.Infof("Auction house daemon is now active")
	return nil
}

// Stop shuts the daemon down in reverse start order.
func (s *Server) Stop() error {
	var stopErr error
	s.stopped.Do(func() {
		log.Infof("Stopping auction house daemon")

		if err := s.api.Stop(); err != nil {
			stopErr = err
		}
		s.wg.Wait()

		if err := s.db.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
	})
	return stopErr
}

// Manager returns the market manager, mainly for tests and embedding.
func (s *Server) Manager() *market.Manager {
	return s.manager
}

// Ledger returns the in-memory dev ledger the standalone daemon runs
// against.
func (s *Server) Ledger() *devledger.Ledger {
	return s.ledger
}
