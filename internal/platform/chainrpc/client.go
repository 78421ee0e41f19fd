// Package chainrpc is an HTTP client for the fulfillment dispatcher service,
// the external collaborator that owns wallets, providers and the subgraph.
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"keyline/internal/platform/config"
)

type Client struct {
	base    string
	client  *http.Client
	signers map[int64]string
}

func NewClient(cfg config.ChainConfig, networks map[string]config.NetworkConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	signers := make(map[int64]string, len(networks))
	for _, network := range networks {
		signers[network.ChainID] = network.Signer
	}
	return &Client{base: cfg.DispatchURL, client: &http.Client{Timeout: timeout}, signers: signers}
}

func (c *Client) GasRefundValue(ctx context.Context, network int64, lockAddress string) (*big.Int, error) {
	url := fmt.Sprintf("%s/v1/locks/%d/%s/gas-refund", c.base, network, lockAddress)
	return c.getAmount(ctx, url, "value")
}

func (c *Client) EstimateRenewal(ctx context.Context, network int64, lockAddress, keyID string) (*big.Int, error) {
	url := fmt.Sprintf("%s/v1/renewals/%d/estimate", c.base, network)
	body := map[string]string{"lockAddress": lockAddress, "keyId": keyID}

	var out struct {
		GasLimit string `json:"gasLimit"`
	}
	if err := c.post(ctx, url, body, &out); err != nil {
		return nil, err
	}
	return parseAmount(out.GasLimit)
}

func (c *Client) SubmitRenewal(ctx context.Context, network int64, lockAddress, keyID string, gasLimit *big.Int) (string, error) {
	url := fmt.Sprintf("%s/v1/renewals/%d", c.base, network)
	body := map[string]string{
		"lockAddress": lockAddress,
		"keyId":       keyID,
		"gasLimit":    gasLimit.String(),
	}

	var out struct {
		Tx string `json:"tx"`
	}
	if err := c.post(ctx, url, body, &out); err != nil {
		return "", err
	}
	if out.Tx == "" {
		return "", fmt.Errorf("dispatcher returned no transaction hash")
	}
	return out.Tx, nil
}

func (c *Client) PurchaserBalance(ctx context.Context, network int64) (*big.Int, error) {
	url := fmt.Sprintf("%s/v1/balances/%d", c.base, network)
	return c.getAmount(ctx, url, "wei")
}

func (c *Client) SignerAddress(network int64) string {
	return c.signers[network]
}

// Keys pages through the keys of a lock via the dispatcher's subgraph proxy.
// It returns the page items and the total key count for the query.
func (c *Client) Keys(ctx context.Context, network int64, lockAddress string, query string, page, pageSize int) ([]ExportKey, int, error) {
	url := fmt.Sprintf("%s/v1/keys/%d/%s?page=%d&size=%d&q=%s", c.base, network, lockAddress, page, pageSize, query)

	var out struct {
		Keys  []ExportKey `json:"keys"`
		Total int         `json:"total"`
	}
	if err := c.get(ctx, url, &out); err != nil {
		return nil, 0, err
	}
	return out.Keys, out.Total, nil
}

type ExportKey struct {
	KeyID      string `json:"keyId"`
	Owner      string `json:"owner"`
	Expiration int64  `json:"expiration"`
}

func (c *Client) getAmount(ctx context.Context, url, field string) (*big.Int, error) {
	var out map[string]string
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	return parseAmount(out[field])
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("dispatcher: %s", apiErr.Message)
		}
		return fmt.Errorf("dispatcher returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseAmount(s string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("dispatcher returned malformed amount %q", s)
	}
	return value, nil
}
