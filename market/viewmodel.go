package market

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// BuildMarketView merges listings, offers and ownership into one
// ranked sequence of view items, one per universe token. The merge is
// a pure computation over the supplied snapshots: identical inputs
// produce identical output.
//
// Ranking: actively listed tokens first, ascending by price, then
// unlisted tokens ascending by id, ties broken by id.
func BuildMarketView(input *ViewInput) []*ViewItem {
	items := make([]*ViewItem, 0, len(input.Universe))
	universe := make(map[TokenId]*ViewItem, len(input.Universe))

	for _, id := range input.Universe {
		if universe[id] != nil {
			continue
		}
		item := &ViewItem{
			TokenId: id,
			Color:   TokenColor(id, input.TotalTokens),
		}
		universe[id] = item
		items = append(items, item)
	}

	// listings and offers referencing tokens outside the universe are
	// ignored, not an error
	for i := range input.Listings {
		listing := &input.Listings[i]
		item := universe[listing.TokenId]
		if item == nil {
			continue
		}
		item.IsActive = listing.IsActive
		item.Price = listing.Price
		item.Seller = listing.Seller
	}

	for i := range input.Offers {
		offer := &input.Offers[i]
		item := universe[offer.TokenId]
		if item == nil {
			continue
		}
		if offer.Amount == nil || offer.Amount.Sign() <= 0 {
			continue
		}
		item.Offer = offer
	}

	for _, item := range items {
		// a listing that survived a transfer outside the marketplace
		// is stale, suppress it
		if item.IsActive {
			if owner, ok := resolveOwner(input, item.TokenId); ok && owner != item.Seller {
				item.IsActive = false
			}
		}

		item.Owned = input.OwnedByCurrentUser[item.TokenId]
		item.PriceText = priceText(item, input.TokenSymbol)
		item.BidText = bidText(item.Offer, input.TokenSymbol)
		item.Actions = actionFlags(item, input)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsActive != b.IsActive {
			return a.IsActive
		}
		if a.IsActive && b.IsActive {
			if cmp := comparePrice(a.Price, b.Price); cmp != 0 {
				return cmp < 0
			}
		}
		return a.TokenId < b.TokenId
	})

	return items
}

// BuildClaimView partitions the universe into claimed/unclaimed in
// natural identifier order. Unlike the market view there is no
// reordering; claimed tokens are only visually deprioritized.
func BuildClaimView(universe []TokenId, unminted []TokenId, total uint64) []*ClaimItem {
	unmintedSet := make(map[TokenId]bool, len(unminted))
	for _, id := range unminted {
		unmintedSet[id] = true
	}
	allClaimed := len(unminted) == 0

	items := make([]*ClaimItem, 0, len(universe))
	for _, id := range universe {
		items = append(items, &ClaimItem{
			TokenId:    id,
			Color:      TokenColor(id, total),
			Claimed:    allClaimed || !unmintedSet[id],
			AllClaimed: allClaimed,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TokenId < items[j].TokenId
	})

	return items
}

func resolveOwner(input *ViewInput, id TokenId) (owner common.Address, ok bool) {
	if addr, found := input.Owners[id]; found {
		return addr, true
	}
	// membership in the current user's ownership set resolves the
	// owner as well
	if input.CurrentUser != nil && input.OwnedByCurrentUser[id] {
		return *input.CurrentUser, true
	}
	return owner, false
}

func actionFlags(item *ViewItem, input *ViewInput) ActionFlags {
	flags := ActionFlags{}

	// without a connected account the view is strictly read-only
	if input.CurrentUser == nil {
		return flags
	}
	user := *input.CurrentUser

	if item.Owned {
		// an owner cannot buy or bid on their own item
		flags.CanList = !item.IsActive
		flags.CanCancelListing = item.IsActive && item.Seller == user
		flags.CanAcceptOffer = item.Offer != nil
		return flags
	}

	flags.CanBuy = item.IsActive
	isHighestBidder := item.Offer != nil && item.Offer.Bidder == user
	flags.CanOffer = !isHighestBidder
	flags.CanCancelOffer = isHighestBidder

	return flags
}

func priceText(item *ViewItem, symbol string) string {
	if !item.IsActive {
		return ""
	}
	return formatAmount(item.Price, symbol)
}

func bidText(offer *Offer, symbol string) string {
	if offer == nil {
		return ""
	}
	amount := formatAmount(offer.Amount, symbol)
	if amount == "" {
		return ""
	}
	return "Offer: " + amount
}

var weiPerToken = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// formatAmount renders a wei amount as a trimmed decimal string. A
// zero price is never rendered as "0.0", it yields empty text.
func formatAmount(wei *big.Int, symbol string) string {
	if wei == nil || wei.Sign() == 0 {
		return ""
	}
	if symbol == "" {
		symbol = "ETH"
	}
	val := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerToken)
	formatted := strings.TrimRight(strings.TrimRight(val.Text('f', 18), "0"), ".")
	return formatted + " " + symbol
}

func comparePrice(a, b *big.Int) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return a.Cmp(b)
}
