package bse

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
const SourceCode = "bse_scrip_master"

// Client fetches the BSE scrip master. The endpoint rejects requests
// without a site Referer header, so every fetch carries one.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	masterURL  string
	referer    string
}

// NewClient creates a new BSE client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		masterURL:  cfg.BSE.ScripMasterURL,
		referer:    cfg.BSE.Referer,
	}
}

// FetchScripMaster downloads and parses the scrip master. The returned
// FetchMeta is populated as far as the fetch got, so the caller can record
// provenance even when the fetch or parse failed.
func (c *Client) FetchScripMaster(ctx context.Context) ([]refdata.StockUpsert, external.FetchMeta, error) {
	meta := external.FetchMeta{URL: c.masterURL}

	resp, err := c.httpClient.GetWithHeaders(ctx, c.masterURL, map[string]string{
		"Referer": c.referer,
	})
	if err != nil {
		return nil, meta, fmt.Errorf("fetch scrip master: %w", err)
	}
	defer resp.Body.Close()

	meta.FetchedUTC = time.Now().UTC()
	meta.HTTPStatus = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return nil, meta, fmt.Errorf("fetch scrip master: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, meta, fmt.Errorf("read scrip master body: %w", err)
	}
	meta.ContentSHA256 = refdata.HashText(string(body))

	rows, err := ParseScripMaster(body)
	if err != nil {
		return nil, meta, err
	}
	meta.RowCount = len(rows)

	c.logger.WithFields(map[string]interface{}{
		"source": SourceCode,
		"rows":   len(rows),
	}).Info("Fetched BSE scrip master")

	return rows, meta, nil
}

// ParseScripMaster parses scrip master CSV bytes into upsert candidates.
// Rows carrying neither a Security Id nor an ISIN have no usable identity
// and are skipped. Status is lowercased for stable comparisons.
func ParseScripMaster(data []byte) ([]refdata.StockUpsert, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse scrip master: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	col := external.HeaderIndex(records[0])
	rows := make([]refdata.StockUpsert, 0, len(records)-1)
	for _, rec := range records[1:] {
		securityID := external.Field(rec, col, "security id")
		isin := external.Field(rec, col, "isin no")
		if securityID == "" && isin == "" {
			continue
		}

		rows = append(rows, refdata.StockUpsert{
			SymbolBSE:    securityID,
			BSEScripCode: external.Field(rec, col, "security code"),
			CompanyName:  external.Field(rec, col, "issuer name"),
			Status:       strings.ToLower(external.Field(rec, col, "status")),
			ISIN:         isin,
		})
	}
	return rows, nil
}
