// Package httpapi exposes the settlement engine over a small JSON HTTP
// surface. It is a thin translation layer: all validation and settlement
// logic lives in the market manager, this package only maps requests and
// errors in and out.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/market"
	"github.com/openassets/auctionhouse/terms"
)

// Error is the JSON body every failed request carries. The code is a stable
// machine readable string, the message is for humans only.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Config holds the server's dependencies.
type Config struct {
	// ListenAddr is the address the HTTP listener binds to.
	ListenAddr string

	// Manager executes all auction operations.
	Manager *market.Manager

	// Terms are the marketplace terms the API reports to clients.
	Terms *terms.MarketTerms
}

// Server serves the JSON API over HTTP.
type Server struct {
	cfg *Config

	router *gin.Engine
	srv    *http.Server
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewServer creates a new API server from the given config. The server is
// not listening yet, Start must be called for that.
func NewServer(cfg *Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		cfg:    cfg,
		router: router,
		srv: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: router,
		},
	}

	v1 := router.Group("/v1")
	v1.POST("/auctions", s.createAuction)
	v1.GET("/auctions", s.listAuctions)
	v1.GET("/auctions/:id", s.getAuction)
	v1.GET("/auctions/:id/price", s.getPrice)
	v1.POST("/auctions/:id/bids", s.placeBid)
	v1.DELETE("/auctions/:id", s.cancelAuction)
	v1.GET("/auction-id", s.deriveID)
	v1.GET("/terms", s.getTerms)

	return s
}

// Start binds the listener and serves until Stop is called. The error the
// listener exits with is returned, except for the regular shutdown.
func (s *Server) Start() error {
	log.Infof("Starting HTTP API server on %v", s.cfg.ListenAddr)

	err := s.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down, letting in-flight requests finish.
func (s *Server) Stop() error {
	log.Infof("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(
		context.Background(), 5*time.Second,
	)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger tags every request with a unique ID and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Header("X-Request-Id", reqID)

		start := time.Now()
		c.Next()

		log.Debugf("%s %s: status=%d, duration=%v, request_id=%s",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start), reqID)
	}
}

func (s *Server) createAuction(c *gin.Context) {
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}

	params, err := parseCreateRequest(&req)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	a, err := s.cfg.Manager.CreateAuction(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, marshalAuction(a))
}

func (s *Server) listAuctions(c *gin.Context) {
	auctions, err := s.cfg.Manager.GetAuctions()
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]*Auction, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, marshalAuction(a))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getAuction(c *gin.Context) {
	id, err := parseAuctionID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	a, err := s.cfg.Manager.GetAuction(id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, marshalAuction(a))
}

func (s *Server) getPrice(c *gin.Context) {
	id, err := parseAuctionID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	price, err := s.cfg.Manager.GetCurrentPrice(id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &PriceResponse{
		AuctionID: id.String(),
		Price:     price.String(),
	})
}

func (s *Server) placeBid(c *gin.Context) {
	id, err := parseAuctionID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	var req BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}

	var supplied auction.Amount
	if req.Amount != "" {
		supplied, err = auction.ParseAmount(req.Amount)
		if err != nil {
			abortBadRequest(c, err)
			return
		}
	}

	sale, err := s.cfg.Manager.Bid(
		c.Request.Context(), auction.Identity(req.Buyer), id,
		auction.Quantity(req.Quantity), supplied,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, marshalSale(sale))
}

func (s *Server) cancelAuction(c *gin.Context) {
	id, err := parseAuctionID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	var req CancelAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}

	err = s.cfg.Manager.CancelAuction(auction.Identity(req.Caller), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) deriveID(c *gin.Context) {
	registry := c.Query("registry")
	unit := c.Query("unit")
	seller := c.Query("seller")
	if registry == "" || unit == "" || seller == "" {
		abortBadRequest(c, errors.New("registry, unit and seller "+
			"query parameters are required"))
		return
	}

	id := auction.DeriveID(
		auction.RegistryID(registry), auction.UnitID(unit),
		auction.Identity(seller),
	)
	c.JSON(http.StatusOK, &IDResponse{ID: id.String()})
}

func (s *Server) getTerms(c *gin.Context) {
	c.JSON(http.StatusOK, marshalTerms(s.cfg.Terms))
}

func abortBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, &Error{
		Code:    "bad_request",
		Message: err.Error(),
	})
}

// abortWithError translates manager errors into stable error codes and HTTP
// status codes.
func abortWithError(c *gin.Context, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal"
	)

	switch {
	case errors.Is(err, auction.ErrNoAuction):
		status, code = http.StatusNotFound, "no_auction"

	case errors.Is(err, auction.ErrInvalidDuration):
		status, code = http.StatusBadRequest, "invalid_duration"

	case errors.Is(err, auction.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"

	case errors.Is(err, auction.ErrInvalidPaymentMethod):
		status, code = http.StatusBadRequest, "invalid_payment_method"

	case errors.Is(err, auction.ErrSellerNotAssetOwner):
		status, code = http.StatusForbidden, "seller_not_asset_owner"

	case errors.Is(err, auction.ErrAssetDoesNotExist):
		status, code = http.StatusNotFound, "asset_does_not_exist"

	case errors.Is(err, auction.ErrInvalidAssetInterface):
		status, code = http.StatusBadRequest,
			"invalid_asset_interface"

	case errors.Is(err, auction.ErrInvalidValueProvided):
		status, code = http.StatusBadRequest,
			"invalid_value_provided"

	case errors.Is(err, auction.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"

	default:
		log.Errorf("Internal error serving %s %s: %v",
			c.Request.Method, c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(status, &Error{
		Code:    code,
		Message: err.Error(),
	})
}
