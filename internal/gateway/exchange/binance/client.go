// Package binance adapts Binance USD-M futures to the exchange.Exchange and
// market.Source contracts via the go-binance SDK.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"empire/internal/gateway/exchange"
	"empire/internal/logger"
	"empire/internal/market"
	"empire/internal/pkg/convert"
	symbolutil "empire/internal/pkg/symbol"
	"empire/internal/types"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const maxHistoryLimit = 1500

type Client struct {
	client *futures.Client
}

func New(apiKey, apiSecret string, timeout time.Duration) *Client {
	cli := futures.NewClient(apiKey, apiSecret)
	cli.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{client: cli}
}

func (c *Client) Name() string { return "binance" }

// IsMarketOpen: perpetual futures trade around the clock; the session gate
// handles configured blackouts, so the gateway only reports reachability.
func (c *Client) IsMarketOpen(ctx context.Context, symbol string, at time.Time) (bool, error) {
	if err := c.client.NewPingService().Do(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	return true, nil
}

func (c *Client) PlaceOrder(ctx context.Context, order types.ExecutionOrder) (exchange.OrderResult, error) {
	side := futures.SideTypeBuy
	if order.Direction == types.DirectionShort {
		side = futures.SideTypeSell
	}
	svc := c.client.NewCreateOrderService().
		Symbol(symbolutil.Exchange(order.Symbol)).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(formatQty(order.Size)).
		NewClientOrderID(order.ID)
	resp, err := svc.Do(ctx)
	if err != nil {
		if msg, ok := brokerRejection(err); ok {
			// Broker-side rejection is a valid outcome, not a transport failure.
			return exchange.OrderResult{Accepted: false, RejectionReason: msg}, nil
		}
		return exchange.OrderResult{}, fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	fill, _ := strconv.ParseFloat(resp.AvgPrice, 64)
	logger.Infof("binance: order %s accepted id=%d", order.Symbol, resp.OrderID)
	return exchange.OrderResult{
		Accepted:  true,
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		FillPrice: fill,
	}, nil
}

func (c *Client) OpenPositions(ctx context.Context, symbols []string) ([]exchange.BrokerPosition, error) {
	risks, err := c.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	want := make(map[string]string, len(symbols))
	for _, s := range symbols {
		want[symbolutil.Exchange(s)] = s
	}
	var out []exchange.BrokerPosition
	for _, r := range risks {
		orig, ok := want[r.Symbol]
		if !ok {
			continue
		}
		amt, _ := strconv.ParseFloat(r.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(r.EntryPrice, 64)
		dir := types.DirectionLong
		size := amt
		if amt < 0 {
			dir = types.DirectionShort
			size = -amt
		}
		out = append(out, exchange.BrokerPosition{
			Symbol:     orig,
			Direction:  dir,
			Size:       size,
			EntryPrice: entry,
		})
	}
	return out, nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) error {
	clean := symbolutil.Exchange(symbol)
	risks, err := c.client.NewGetPositionRiskService().Symbol(clean).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	for _, r := range risks {
		amt, _ := strconv.ParseFloat(r.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		side := futures.SideTypeSell
		qty := amt
		if amt < 0 {
			side = futures.SideTypeBuy
			qty = -amt
		}
		_, err := c.client.NewCreateOrderService().
			Symbol(clean).
			Side(side).
			Type(futures.OrderTypeMarket).
			ReduceOnly(true).
			Quantity(formatQty(qty)).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
		}
	}
	return nil
}

func (c *Client) Account(ctx context.Context) (types.AccountSnapshot, error) {
	acct, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	equity, _ := strconv.ParseFloat(acct.TotalMarginBalance, 64)
	avail, _ := strconv.ParseFloat(acct.AvailableBalance, 64)
	return types.AccountSnapshot{
		Equity:    equity,
		Available: avail,
		Currency:  "USDT",
		UpdatedAt: time.Now(),
	}, nil
}

func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.client.NewListPricesService().Symbol(symbolutil.Exchange(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return strconv.ParseFloat(prices[0].Price, 64)
}

// FetchHistory implements market.Source.
func (c *Client) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	kls, err := c.client.NewKlinesService().
		Symbol(symbolutil.Exchange(symbol)).
		Interval(strings.ToLower(interval)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, k := range kls {
		out = append(out, market.Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      convert.ToFloat64(k.Open),
			High:      convert.ToFloat64(k.High),
			Low:       convert.ToFloat64(k.Low),
			Close:     convert.ToFloat64(k.Close),
			Volume:    convert.ToFloat64(k.Volume),
		})
	}
	return out, nil
}

// brokerRejection distinguishes an API-level order rejection (the exchange
// answered and said no) from a transport failure where the order's fate is
// unknown.
func brokerRejection(err error) (string, bool) {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, true
	}
	return "", false
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}


