package nse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smassist/backend/internal/external"
	"github.com/smassist/backend/internal/refdata"
	"github.com/smassist/backend/pkg/config"
	"github.com/smassist/backend/pkg/httputil"
	"github.com/smassist/backend/pkg/logger"
)

// SourceCode identifies this feed in the provenance ledger.
const SourceCode = "nse_equity_list"

// Client fetches the NSE listed-equities master file (EQUITY_L.csv).
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	listURL    string
	onlyEQ     bool
}

// NewClient creates a new NSE client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		listURL:    cfg.NSE.EquityListURL,
		onlyEQ:     cfg.NSE.OnlySeriesEQ,
	}
}

// FetchEquityList downloads and parses the equity master. The returned
// FetchMeta is populated as far as the fetch got, so the caller can record
// provenance even when the fetch or parse failed.
func (c *Client) FetchEquityList(ctx context.Context) ([]refdata.StockUpsert, external.FetchMeta, error) {
	meta := external.FetchMeta{URL: c.listURL}

	resp, err := c.httpClient.Get(ctx, c.listURL)
	if err != nil {
		return nil, meta, fmt.Errorf("fetch equity list: %w", err)
	}
	defer resp.Body.Close()

	meta.FetchedUTC = time.Now().UTC()
	meta.HTTPStatus = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return nil, meta, fmt.Errorf("fetch equity list: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, meta, fmt.Errorf("read equity list body: %w", err)
	}
	meta.ContentSHA256 = refdata.HashText(string(body))

	rows, err := ParseEquityList(body, c.onlyEQ)
	if err != nil {
		return nil, meta, err
	}
	meta.RowCount = len(rows)

	c.logger.WithFields(map[string]interface{}{
		"source": SourceCode,
		"rows":   len(rows),
	}).Info("Fetched NSE equity list")

	return rows, meta, nil
}

// ParseEquityList parses EQUITY_L.csv bytes into upsert candidates.
// Section-flagged symbols (containing '#') mark suspended or test listings
// and are skipped, as are rows with no symbol at all. With onlyEQ set,
// only SERIES=EQ rows survive.
func ParseEquityList(data []byte, onlyEQ bool) ([]refdata.StockUpsert, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse equity list: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	col := external.HeaderIndex(records[0])
	rows := make([]refdata.StockUpsert, 0, len(records)-1)
	for _, rec := range records[1:] {
		symbol := external.Field(rec, col, "symbol")
		if symbol == "" || strings.Contains(symbol, "#") {
			continue
		}
		// The filter only rejects rows that declare a different series;
		// rows with no series at all stay in.
		series := external.Field(rec, col, "series")
		if onlyEQ && series != "" && series != "EQ" {
			continue
		}

		rows = append(rows, refdata.StockUpsert{
			SymbolNSE:   symbol,
			CompanyName: external.Field(rec, col, "name of company"),
			NSESeries:   series,
			ISIN:        external.Field(rec, col, "isin number"),
			Status:      "active",
		})
	}
	return rows, nil
}
