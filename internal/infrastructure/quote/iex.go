package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

const (
	// DefaultIEXBaseURL is the IEX Cloud stable API root.
	DefaultIEXBaseURL = "https://cloud.iexapis.com/stable"
	defaultTimeout    = 5 * time.Second
)

// IEX looks up quotes from an IEX Cloud compatible endpoint:
// GET {base}/stock/{symbol}/quote?token={key}
type IEX struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewIEX builds an IEX client. Empty baseURL selects DefaultIEXBaseURL.
func NewIEX(baseURL, token string, timeout time.Duration) *IEX {
	if baseURL == "" {
		baseURL = DefaultIEXBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &IEX{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type iexQuote struct {
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
	Symbol      string          `json:"symbol"`
}

// Lookup fetches the latest price for symbol. Transport, status and decoding
// failures all collapse to domain.ErrQuoteNotFound.
func (p *IEX) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	endpoint := fmt.Sprintf("%s/stock/%s/quote?token=%s",
		p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Quote{}, notFound(symbol, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Quote{}, notFound(symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, notFound(symbol, fmt.Errorf("status %d", resp.StatusCode))
	}

	var q iexQuote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return domain.Quote{}, notFound(symbol, err)
	}
	if !q.LatestPrice.IsPositive() || q.Symbol == "" {
		return domain.Quote{}, notFound(symbol, fmt.Errorf("incomplete quote"))
	}

	return domain.Quote{Name: q.CompanyName, Symbol: strings.ToUpper(q.Symbol), Price: q.LatestPrice}, nil
}

func notFound(symbol string, cause error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrQuoteNotFound, symbol, cause)
}
