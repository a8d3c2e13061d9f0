package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPSource 从任意 JSON 报价接口取价，价格字段用 gjson 路径定位，
// 便于在不改代码的情况下接入 coingecko / mempool 等公共行情。
type HTTPSource struct {
	url       string
	pricePath string
	client    *http.Client
}

func NewHTTPSource(url, pricePath string) *HTTPSource {
	return &HTTPSource{
		url:       url,
		pricePath: pricePath,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPSource) Name() string { return "http" }

func (h *HTTPSource) Latest(ctx context.Context) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return Sample{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return Sample{}, fmt.Errorf("quote request status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Sample{}, err
	}
	result := gjson.GetBytes(body, h.pricePath)
	if !result.Exists() {
		return Sample{}, ErrPriceUnavailable
	}
	price := result.Float()
	if price <= 0 {
		return Sample{}, ErrPriceUnavailable
	}
	return Sample{Price: price, Time: time.Now()}, nil
}
