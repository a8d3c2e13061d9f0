package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
)

// BinanceSource 通过现货行情接口取最新价，无需 API key。
type BinanceSource struct {
	symbol string
	client *binance.Client
}

func NewBinanceSource(symbol string) *BinanceSource {
	return &BinanceSource{symbol: symbol, client: binance.NewClient("", "")}
}

func (b *BinanceSource) Name() string { return "binance" }

func (b *BinanceSource) Latest(ctx context.Context) (Sample, error) {
	prices, err := b.client.NewListPricesService().Symbol(b.symbol).Do(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("binance ticker price (%s): %w", b.symbol, err)
	}
	if len(prices) == 0 {
		return Sample{}, ErrPriceUnavailable
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("binance ticker price parse (%s): %w", prices[0].Price, err)
	}
	if price <= 0 {
		return Sample{}, ErrPriceUnavailable
	}
	return Sample{Price: price, Time: time.Now()}, nil
}
