package services

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/utils"
)

// BuildViewInput converts a snapshot into the input of the market view
// model builder. The current user is optional, without one all action
// flags stay disabled.
func (ms *MarketService) BuildViewInput(snapshot *MarketSnapshot, currentUser *common.Address) market.ViewInput {
	input := market.ViewInput{
		Universe:    snapshot.Universe,
		TotalTokens: utils.Config.Chain.Config.CollectionSize,
		Listings:    make([]market.Listing, 0, len(snapshot.Listings)),
		Offers:      make([]market.Offer, 0, len(snapshot.Offers)),
		Owners:      snapshot.Owners,
		CurrentUser: currentUser,
		TokenSymbol: utils.Config.Chain.Config.TokenSymbol,
	}

	for _, listing := range snapshot.Listings {
		input.Listings = append(input.Listings, listing)
	}
	for _, offer := range snapshot.Offers {
		input.Offers = append(input.Offers, offer)
	}

	if currentUser != nil {
		input.OwnedByCurrentUser = map[market.TokenId]bool{}
		for id, owner := range snapshot.Owners {
			if owner == *currentUser {
				input.OwnedByCurrentUser[id] = true
			}
		}
	}

	return input
}

// GetUnmintedTokenIds returns the unminted ids of a snapshot in
// ascending order.
func (ms *MarketService) GetUnmintedTokenIds(snapshot *MarketSnapshot) []market.TokenId {
	ids := make([]market.TokenId, 0, len(snapshot.Unminted))
	for id := range snapshot.Unminted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		return ids[a] < ids[b]
	})

	return ids
}

// GetTokensOfOwner returns the token ids held by an address, derived
// from the snapshot owner table.
func (ms *MarketService) GetTokensOfOwner(snapshot *MarketSnapshot, owner common.Address) []market.TokenId {
	ids := []market.TokenId{}
	for id, tokenOwner := range snapshot.Owners {
		if tokenOwner == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool {
		return ids[a] < ids[b]
	})

	return ids
}
