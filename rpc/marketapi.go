package rpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainbowsvgs/spectra/contracts"
	"github.com/rainbowsvgs/spectra/market"
)

// MarketReader issues the read-only contract calls the view models are
// built from. It is bound to one execution client; callers pick a
// ready client from the pool per call batch.
type MarketReader struct {
	client         *ExecutionClient
	collectionAddr common.Address
	marketAddr     common.Address
}

func NewMarketReader(client *ExecutionClient, collectionAddr, marketAddr common.Address) *MarketReader {
	return &MarketReader{
		client:         client,
		collectionAddr: collectionAddr,
		marketAddr:     marketAddr,
	}
}

func (mr *MarketReader) GetAllListedItems(ctx context.Context) ([]market.Listing, error) {
	data, err := contracts.MarketABI.Pack("getAllListedItems")
	if err != nil {
		return nil, err
	}
	res, err := mr.client.CallContract(ctx, mr.marketAddr, data)
	if err != nil {
		return nil, fmt.Errorf("error calling getAllListedItems: %w", err)
	}

	tokenIds, rawListings, err := contracts.UnpackListedItems(res)
	if err != nil {
		return nil, err
	}

	listings := make([]market.Listing, 0, len(tokenIds))
	for i, id := range tokenIds {
		listings = append(listings, market.Listing{
			TokenId:  market.TokenId(id.Uint64()),
			Seller:   rawListings[i].Seller,
			Price:    rawListings[i].Price,
			IsActive: rawListings[i].IsActive,
		})
	}
	return listings, nil
}

func (mr *MarketReader) GetAllOffers(ctx context.Context) ([]market.Offer, error) {
	data, err := contracts.MarketABI.Pack("getAllOffers")
	if err != nil {
		return nil, err
	}
	res, err := mr.client.CallContract(ctx, mr.marketAddr, data)
	if err != nil {
		// older marketplace deployments only expose the per-token
		// getter, the caller falls back to fan-out probing
		if isUnknownMethodError(err) {
			return nil, ErrMethodNotAvailable
		}
		return nil, fmt.Errorf("error calling getAllOffers: %w", err)
	}

	tokenIds, rawOffers, err := contracts.UnpackAllOffers(res)
	if err != nil {
		return nil, err
	}

	offers := make([]market.Offer, 0, len(tokenIds))
	for i, id := range tokenIds {
		offers = append(offers, market.Offer{
			TokenId: market.TokenId(id.Uint64()),
			Bidder:  rawOffers[i].Bidder,
			Amount:  rawOffers[i].Amount,
		})
	}
	return offers, nil
}

func (mr *MarketReader) GetHighestOffer(ctx context.Context, tokenId market.TokenId) (*market.Offer, error) {
	data, err := contracts.MarketABI.Pack("getHighestOffer", new(big.Int).SetUint64(uint64(tokenId)))
	if err != nil {
		return nil, err
	}
	res, err := mr.client.CallContract(ctx, mr.marketAddr, data)
	if err != nil {
		return nil, fmt.Errorf("error calling getHighestOffer(%v): %w", tokenId, err)
	}

	rawOffer, err := contracts.UnpackHighestOffer(res)
	if err != nil {
		return nil, err
	}
	if rawOffer.Amount == nil || rawOffer.Amount.Sign() == 0 {
		return nil, nil
	}
	return &market.Offer{
		TokenId: tokenId,
		Bidder:  rawOffer.Bidder,
		Amount:  rawOffer.Amount,
	}, nil
}

func (mr *MarketReader) GetUnmintedColorIds(ctx context.Context) ([]market.TokenId, error) {
	data, err := contracts.CollectionABI.Pack("getUnmintedColorIds")
	if err != nil {
		return nil, err
	}
	res, err := mr.client.CallContract(ctx, mr.collectionAddr, data)
	if err != nil {
		return nil, fmt.Errorf("error calling getUnmintedColorIds: %w", err)
	}

	rawIds, err := contracts.UnpackTokenIds(contracts.CollectionABI, "getUnmintedColorIds", res)
	if err != nil {
		return nil, err
	}
	return toTokenIds(rawIds), nil
}

func (mr *MarketReader) GetOwnerOf(ctx context.Context, tokenId market.TokenId) (common.Address, error) {
	data, err := contracts.CollectionABI.Pack("ownerOf", new(big.Int).SetUint64(uint64(tokenId)))
	if err != nil {
		return common.Address{}, err
	}
	res, err := mr.client.CallContract(ctx, mr.collectionAddr, data)
	if err != nil {
		// unminted tokens revert, that is not an error for callers
		return common.Address{}, fmt.Errorf("error calling ownerOf(%v): %w", tokenId, err)
	}
	return contracts.UnpackAddress(contracts.CollectionABI, "ownerOf", res)
}

func (mr *MarketReader) GetTokensOfOwner(ctx context.Context, owner common.Address) ([]market.TokenId, error) {
	data, err := contracts.CollectionABI.Pack("tokensOfOwner", owner)
	if err != nil {
		return nil, err
	}
	res, err := mr.client.CallContract(ctx, mr.collectionAddr, data)
	if err != nil {
		if isUnknownMethodError(err) {
			return nil, ErrMethodNotAvailable
		}
		return nil, fmt.Errorf("error calling tokensOfOwner: %w", err)
	}

	rawIds, err := contracts.UnpackTokenIds(contracts.CollectionABI, "tokensOfOwner", res)
	if err != nil {
		return nil, err
	}
	return toTokenIds(rawIds), nil
}

func (mr *MarketReader) IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	data, err := contracts.CollectionABI.Pack("isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	res, err := mr.client.CallContract(ctx, mr.collectionAddr, data)
	if err != nil {
		return false, fmt.Errorf("error calling isApprovedForAll: %w", err)
	}
	return contracts.UnpackBool(contracts.CollectionABI, "isApprovedForAll", res)
}

// ErrMethodNotAvailable marks a contract method the deployed contract
// does not expose; callers are expected to fall back where possible.
var ErrMethodNotAvailable = fmt.Errorf("contract method not available")

func isUnknownMethodError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "method not found")
}

func toTokenIds(rawIds []*big.Int) []market.TokenId {
	ids := make([]market.TokenId, 0, len(rawIds))
	for _, id := range rawIds {
		ids = append(ids, market.TokenId(id.Uint64()))
	}
	return ids
}
