package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/openassets/auctionhouse/httpapi"
	"github.com/urfave/cli"
)

var createCommand = cli.Command{
	Name:      "create",
	Usage:     "list an asset for sale in a descending price auction",
	ArgsUsage: "",
	Description: `
	Lists an asset for sale. The price starts at start_price and moves
	linearly to end_price over the given duration, where it stays until
	the listing is sold or canceled. Listing the same asset again
	replaces the previous listing entirely.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "seller",
			Usage: "the identity listing the asset",
		},
		cli.StringFlag{
			Name:  "registry",
			Usage: "the asset registry the asset lives in",
		},
		cli.StringFlag{
			Name:  "unit",
			Usage: "the asset unit to sell",
		},
		cli.StringFlag{
			Name: "kind",
			Usage: "the asset kind, either singleton or " +
				"quantized",
			Value: "singleton",
		},
		cli.StringFlag{
			Name:  "start_price",
			Usage: "the per unit price at the start of the curve",
		},
		cli.StringFlag{
			Name:  "end_price",
			Usage: "the per unit price at the end of the curve",
		},
		cli.Int64Flag{
			Name:  "duration",
			Usage: "the length of the price curve in seconds",
		},
		cli.Uint64Flag{
			Name:  "quantity",
			Usage: "the number of units to sell",
			Value: 1,
		},
		cli.StringFlag{
			Name: "token",
			Usage: "the payment token to sell for; the native " +
				"medium if empty",
		},
	},
	Action: createAuction,
}

func createAuction(ctx *cli.Context) error {
	req := &httpapi.CreateAuctionRequest{
		Seller:          ctx.String("seller"),
		AssetRegistry:   ctx.String("registry"),
		AssetUnit:       ctx.String("unit"),
		AssetKind:       ctx.String("kind"),
		StartingPrice:   ctx.String("start_price"),
		EndingPrice:     ctx.String("end_price"),
		DurationSeconds: ctx.Int64("duration"),
		Quantity:        ctx.Uint64("quantity"),
		PaymentMedium:   ctx.String("token"),
	}
	if req.Seller == "" || req.AssetRegistry == "" || req.AssetUnit == "" {
		return &invalidUsageError{ctx, "create"}
	}

	var resp httpapi.Auction
	err := newAPIClient(ctx).call(
		http.MethodPost, "/v1/auctions", req, &resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var listCommand = cli.Command{
	Name:   "list",
	Usage:  "list all live auctions",
	Action: listAuctions,
}

func listAuctions(ctx *cli.Context) error {
	var resp []*httpapi.Auction
	err := newAPIClient(ctx).call(
		http.MethodGet, "/v1/auctions", nil, &resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var getCommand = cli.Command{
	Name:      "get",
	Usage:     "fetch one live auction by its ID",
	ArgsUsage: "auction_id",
	Action:    getAuction,
}

func getAuction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, "get"}
	}

	var resp httpapi.Auction
	err := newAPIClient(ctx).call(
		http.MethodGet, "/v1/auctions/"+ctx.Args().First(), nil,
		&resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var priceCommand = cli.Command{
	Name:      "price",
	Usage:     "read the current per unit price of a live auction",
	ArgsUsage: "auction_id",
	Action:    getPrice,
}

func getPrice(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, "price"}
	}

	var resp httpapi.PriceResponse
	err := newAPIClient(ctx).call(
		http.MethodGet,
		fmt.Sprintf("/v1/auctions/%s/price", ctx.Args().First()),
		nil, &resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var bidCommand = cli.Command{
	Name:      "bid",
	Usage:     "buy units out of a live auction at the current price",
	ArgsUsage: "auction_id",
	Description: `
	Buys units at the current per unit price. For auctions in the native
	medium the amount flag must match the price plus taker fee of all
	bought units exactly; read it with the price command first. For token
	auctions no amount may be given, the total is pulled from the buyer's
	pre-authorized token balance.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "buyer",
			Usage: "the identity buying the units",
		},
		cli.Uint64Flag{
			Name:  "quantity",
			Usage: "the number of units to buy",
			Value: 1,
		},
		cli.StringFlag{
			Name: "amount",
			Usage: "the supplied native payment, price plus " +
				"taker fee of all bought units",
		},
	},
	Action: placeBid,
}

func placeBid(ctx *cli.Context) error {
	if ctx.NArg() != 1 || ctx.String("buyer") == "" {
		return &invalidUsageError{ctx, "bid"}
	}

	req := &httpapi.BidRequest{
		Buyer:    ctx.String("buyer"),
		Quantity: ctx.Uint64("quantity"),
		Amount:   ctx.String("amount"),
	}

	var resp httpapi.Sale
	err := newAPIClient(ctx).call(
		http.MethodPost,
		fmt.Sprintf("/v1/auctions/%s/bids", ctx.Args().First()),
		req, &resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var cancelCommand = cli.Command{
	Name:      "cancel",
	Usage:     "cancel a live auction",
	ArgsUsage: "auction_id",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name: "caller",
			Usage: "the identity requesting the cancellation, " +
				"must be the seller",
		},
	},
	Action: cancelAuction,
}

func cancelAuction(ctx *cli.Context) error {
	if ctx.NArg() != 1 || ctx.String("caller") == "" {
		return &invalidUsageError{ctx, "cancel"}
	}

	req := &httpapi.CancelAuctionRequest{
		Caller: ctx.String("caller"),
	}
	err := newAPIClient(ctx).call(
		http.MethodDelete, "/v1/auctions/"+ctx.Args().First(), req,
		nil,
	)
	if err != nil {
		return err
	}

	fmt.Println("auction canceled")
	return nil
}

var termsCommand = cli.Command{
	Name:   "terms",
	Usage:  "show the marketplace fee rates and supported tokens",
	Action: getTerms,
}

func getTerms(ctx *cli.Context) error {
	var resp httpapi.Terms
	err := newAPIClient(ctx).call(
		http.MethodGet, "/v1/terms", nil, &resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var deriveIDCommand = cli.Command{
	Name:  "deriveid",
	Usage: "derive the auction ID of an asset listing",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "seller",
			Usage: "the identity listing the asset",
		},
		cli.StringFlag{
			Name:  "registry",
			Usage: "the asset registry the asset lives in",
		},
		cli.StringFlag{
			Name:  "unit",
			Usage: "the asset unit",
		},
	},
	Action: deriveID,
}

func deriveID(ctx *cli.Context) error {
	registry := ctx.String("registry")
	unit := ctx.String("unit")
	seller := ctx.String("seller")
	if registry == "" || unit == "" || seller == "" {
		return &invalidUsageError{ctx, "deriveid"}
	}

	query := url.Values{
		"registry": []string{registry},
		"unit":     []string{unit},
		"seller":   []string{seller},
	}

	var resp httpapi.IDResponse
	err := newAPIClient(ctx).call(
		http.MethodGet, "/v1/auction-id?"+query.Encode(), nil, &resp,
	)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}
