package httpapi

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/market"
	"github.com/openassets/auctionhouse/terms"
)

const (
	kindSingleton = "singleton"
	kindQuantized = "quantized"
)

// Auction is the JSON representation of a live auction record. Amounts are
// rendered as decimal strings to keep the fixed-point precision out of
// floating point territory.
type Auction struct {
	ID                string    `json:"id"`
	Seller            string    `json:"seller"`
	AssetRegistry     string    `json:"asset_registry"`
	AssetUnit         string    `json:"asset_unit"`
	AssetKind         string    `json:"asset_kind"`
	StartingPrice     string    `json:"starting_price"`
	EndingPrice       string    `json:"ending_price"`
	StartedAt         time.Time `json:"started_at"`
	DurationSeconds   int64     `json:"duration_seconds"`
	RemainingQuantity uint64    `json:"remaining_quantity"`
	PaymentMedium     string    `json:"payment_medium,omitempty"`
}

// Sale is the JSON representation of a settled bid.
type Sale struct {
	AuctionID string `json:"auction_id"`
	Buyer     string `json:"buyer"`
	UnitPrice string `json:"unit_price"`
	Quantity  uint64 `json:"quantity"`
	TotalFee  string `json:"total_fee"`
}

// CreateAuctionRequest is the body of a listing request.
type CreateAuctionRequest struct {
	Seller          string `json:"seller" binding:"required"`
	AssetRegistry   string `json:"asset_registry" binding:"required"`
	AssetUnit       string `json:"asset_unit" binding:"required"`
	AssetKind       string `json:"asset_kind" binding:"required"`
	StartingPrice   string `json:"starting_price" binding:"required"`
	EndingPrice     string `json:"ending_price" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
	Quantity        uint64 `json:"quantity" binding:"required"`
	PaymentMedium   string `json:"payment_medium"`
}

// BidRequest is the body of a bid on a live auction.
type BidRequest struct {
	Buyer    string `json:"buyer" binding:"required"`
	Quantity uint64 `json:"quantity" binding:"required"`

	// Amount is the supplied native payment as a decimal string. Must be
	// absent (or zero) for token denominated auctions.
	Amount string `json:"amount"`
}

// CancelAuctionRequest carries the identity requesting the cancellation.
type CancelAuctionRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// PriceResponse is the answer to a current price query.
type PriceResponse struct {
	AuctionID string `json:"auction_id"`
	Price     string `json:"price"`
}

// IDResponse is the answer to an auction ID derivation query.
type IDResponse struct {
	ID string `json:"id"`
}

// Terms is the JSON representation of the marketplace terms.
type Terms struct {
	MakerFeeRateBps uint32   `json:"maker_fee_rate_bps"`
	TakerFeeRateBps uint32   `json:"taker_fee_rate_bps"`
	FeeRecipient    string   `json:"fee_recipient"`
	SupportedTokens []string `json:"supported_tokens"`
}

func marshalAuction(a *auction.Auction) *Auction {
	id := a.ID()
	return &Auction{
		ID:                id.String(),
		Seller:            string(a.Seller),
		AssetRegistry:     string(a.AssetRegistry),
		AssetUnit:         string(a.AssetUnit),
		AssetKind:         marshalAssetKind(a.AssetKind),
		StartingPrice:     a.StartingPrice.String(),
		EndingPrice:       a.EndingPrice.String(),
		StartedAt:         a.StartedAt,
		DurationSeconds:   int64(a.Duration / time.Second),
		RemainingQuantity: uint64(a.RemainingQuantity),
		PaymentMedium:     string(a.PaymentMedium),
	}
}

func marshalSale(sale *auction.Sale) *Sale {
	return &Sale{
		AuctionID: sale.AuctionID.String(),
		Buyer:     string(sale.Buyer),
		UnitPrice: sale.UnitPrice.String(),
		Quantity:  uint64(sale.Quantity),
		TotalFee:  sale.TotalFee.String(),
	}
}

func marshalTerms(t *terms.MarketTerms) *Terms {
	tokens := make([]string, 0, len(t.SupportedTokens))
	for _, token := range t.SupportedTokens {
		tokens = append(tokens, string(token))
	}
	return &Terms{
		MakerFeeRateBps: t.MakerFeeRateBps,
		TakerFeeRateBps: t.TakerFeeRateBps,
		FeeRecipient:    string(t.FeeRecipient),
		SupportedTokens: tokens,
	}
}

func marshalAssetKind(kind auction.AssetKind) string {
	switch kind {
	case auction.KindSingleton:
		return kindSingleton

	case auction.KindQuantized:
		return kindQuantized

	default:
		return fmt.Sprintf("unknown<%d>", kind)
	}
}

func parseAssetKind(s string) (auction.AssetKind, error) {
	switch s {
	case kindSingleton:
		return auction.KindSingleton, nil

	case kindQuantized:
		return auction.KindQuantized, nil

	default:
		return 0, fmt.Errorf("unknown asset kind %q", s)
	}
}

func parseAuctionID(s string) (auction.ID, error) {
	var id auction.ID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid auction ID %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid auction ID %q: need %d bytes",
			s, len(id))
	}
	copy(id[:], raw)
	return id, nil
}

func parseCreateRequest(req *CreateAuctionRequest) (*market.CreateParams,
	error) {

	kind, err := parseAssetKind(req.AssetKind)
	if err != nil {
		return nil, err
	}
	startingPrice, err := auction.ParseAmount(req.StartingPrice)
	if err != nil {
		return nil, err
	}
	endingPrice, err := auction.ParseAmount(req.EndingPrice)
	if err != nil {
		return nil, err
	}

	return &market.CreateParams{
		Seller:        auction.Identity(req.Seller),
		AssetRegistry: auction.RegistryID(req.AssetRegistry),
		AssetUnit:     auction.UnitID(req.AssetUnit),
		AssetKind:     kind,
		StartingPrice: startingPrice,
		EndingPrice:   endingPrice,
		Duration: time.Duration(req.DurationSeconds) *
			time.Second,
		Quantity:      auction.Quantity(req.Quantity),
		PaymentMedium: auction.Medium(req.PaymentMedium),
	}, nil
}
