// Package price resolves USD prices for the assets a Cooler loan can hold
// as collateral. OHM is read from its USD feed; gOHM is derived from the
// OHM price and the gOHM conversion index.
package price

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"cooler-indexer/internal/config"
	"cooler-indexer/internal/fixedpoint"
)

// FeedSource reads a price aggregator's latest raw answer and its decimals.
type FeedSource interface {
	LatestAnswer(ctx context.Context, feed common.Address) (*big.Int, uint8, error)
}

// IndexSource reads a staked token's raw conversion index.
type IndexSource interface {
	Index(ctx context.Context, token common.Address) (*big.Int, error)
}

// UnsupportedAssetError is returned for tokens the oracle has no price
// path for on the active network.
type UnsupportedAssetError struct {
	Token   common.Address
	Network string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("no price source for token %s on network %s", e.Token, e.Network)
}

// Oracle resolves token addresses to USD prices using the address table of
// a single network.
type Oracle struct {
	network config.Network
	feeds   FeedSource
	tokens  IndexSource
}

// NewOracle creates an Oracle bound to one network's address table.
func NewOracle(network config.Network, feeds FeedSource, tokens IndexSource) *Oracle {
	return &Oracle{network: network, feeds: feeds, tokens: tokens}
}

// FetchPriceUSD returns the current USD price of the given token.
// gOHM price = OHM price * conversion index (index raw, 9 fractional digits).
func (o *Oracle) FetchPriceUSD(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	switch token {
	case o.network.OhmToken:
		return o.ohmPrice(ctx)
	case o.network.GohmToken:
		return o.gohmPrice(ctx)
	default:
		return decimal.Zero, &UnsupportedAssetError{Token: token, Network: o.network.Name}
	}
}

func (o *Oracle) ohmPrice(ctx context.Context) (decimal.Decimal, error) {
	raw, feedDecimals, err := o.feeds.LatestAnswer(ctx, o.network.OhmUsdFeed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read OHM/USD feed: %w", err)
	}
	return fixedpoint.ToDecimal(raw, int32(feedDecimals)), nil
}

func (o *Oracle) gohmPrice(ctx context.Context) (decimal.Decimal, error) {
	base, err := o.ohmPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	rawIndex, err := o.tokens.Index(ctx, o.network.GohmToken)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read gOHM index: %w", err)
	}

	index := fixedpoint.ToDecimal(rawIndex, fixedpoint.IndexDecimals)
	return base.Mul(index), nil
}
