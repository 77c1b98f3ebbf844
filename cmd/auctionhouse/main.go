package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openassets/auctionhouse"
	"github.com/openassets/auctionhouse/httpapi"
	"github.com/urfave/cli"
)

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func printJSON(resp interface{}) {
	b, err := json.Marshal(resp)
	if err != nil {
		fatal(err)
	}

	var out bytes.Buffer
	_ = json.Indent(&out, b, "", "\t")
	out.WriteString("\n")
	_, _ = out.WriteTo(os.Stdout)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[auctionhouse] %v\n", err)
	}
	os.Exit(1)
}

// apiClient is a thin JSON client for the daemon's HTTP API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(ctx *cli.Context) *apiClient {
	return &apiClient{
		baseURL: "http://" + ctx.GlobalString("apiserver"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// call executes one API request. A non-2xx response is decoded into the
// API's error body and returned as an error.
func (c *apiClient) call(method, path string, reqBody,
	respBody interface{}) error {

	var payload bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&payload).Encode(reqBody); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr httpapi.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("server returned status %d",
				resp.StatusCode)
		}
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}

	if respBody == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

func main() {
	app := cli.NewApp()

	app.Version = auctionhouse.Version()
	app.Name = "auctionhouse"
	app.Usage = "control plane for your auctionhoused"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "apiserver",
			Value: "localhost:8810",
			Usage: "auctionhoused daemon address host:port",
		},
	}
	app.Commands = []cli.Command{
		createCommand, listCommand, getCommand, priceCommand,
		bidCommand, cancelCommand, deriveIDCommand, termsCommand,
	}

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}
