package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

// CentsScale scales fiat amounts to fixed-point "microcents" (US cents x
// 10^6). All threshold math stays in integers to keep comparisons exact.
const CentsScale = 1_000_000

// Cents converts a whole-cent amount to microcents.
func Cents(cents int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(cents), big.NewInt(CentsScale))
}

// Oracle quotes per-network prices in microcents.
type Oracle interface {
	// GasPrice returns the current fiat cost of one gas unit.
	GasPrice(ctx context.Context, network int64) (*big.Int, error)
	// NativePrice returns the fiat price of one whole native token.
	NativePrice(ctx context.Context, network int64) (*big.Int, error)
}

// HTTPOracle reads quotes from the pricing service.
type HTTPOracle struct {
	base   string
	client *http.Client
}

func NewHTTPOracle(base string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPOracle{base: base, client: &http.Client{Timeout: timeout}}
}

func (o *HTTPOracle) GasPrice(ctx context.Context, network int64) (*big.Int, error) {
	return o.fetch(ctx, fmt.Sprintf("%s/v1/gas/%d", o.base, network))
}

func (o *HTTPOracle) NativePrice(ctx context.Context, network int64) (*big.Int, error) {
	return o.fetch(ctx, fmt.Sprintf("%s/v1/native/%d", o.base, network))
}

func (o *HTTPOracle) fetch(ctx context.Context, url string) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing oracle returned %s", resp.Status)
	}

	var quote struct {
		Microcents string `json:"microcents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, err
	}

	value, ok := new(big.Int).SetString(quote.Microcents, 10)
	if !ok {
		return nil, fmt.Errorf("pricing oracle returned malformed amount %q", quote.Microcents)
	}
	return value, nil
}
