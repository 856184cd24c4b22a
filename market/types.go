package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenId is the dense 1..N identifier of a collection token.
type TokenId uint64

// Listing is a seller's fixed price sale entry from the marketplace
// contract. The marketplace is the system of record, but a listing is
// only authoritative while its seller still owns the token.
type Listing struct {
	TokenId  TokenId        `json:"tokenId"`
	Seller   common.Address `json:"seller"`
	Price    *big.Int       `json:"price"`
	IsActive bool           `json:"isActive"`
}

// Offer is the current highest standing bid on a token.
type Offer struct {
	TokenId TokenId        `json:"tokenId"`
	Bidder  common.Address `json:"bidder"`
	Amount  *big.Int       `json:"amount"`
}

// ActionFlags carries the per-token availability of each marketplace
// action for the current user. Each flag is computed independently.
type ActionFlags struct {
	CanOffer         bool `json:"canOffer"`
	CanCancelOffer   bool `json:"canCancelOffer"`
	CanBuy           bool `json:"canBuy"`
	CanList          bool `json:"canList"`
	CanCancelListing bool `json:"canCancelListing"`
	CanAcceptOffer   bool `json:"canAcceptOffer"`
}

// ViewItem is the render ready representation of one token. It is
// rebuilt on every refresh and never persisted.
type ViewItem struct {
	TokenId   TokenId        `json:"tokenId"`
	Color     string         `json:"color"`
	IsActive  bool           `json:"isActive"`
	Price     *big.Int       `json:"price,omitempty"`
	Seller    common.Address `json:"seller,omitempty"`
	PriceText string         `json:"priceText"`
	BidText   string         `json:"bidText"`
	Offer     *Offer         `json:"offer,omitempty"`
	Owned     bool           `json:"owned"`
	Actions   ActionFlags    `json:"actions"`
}

// ClaimItem is one cell of the claim grid. The claim view keeps
// natural identifier order; claimed tokens are flagged, not reordered.
type ClaimItem struct {
	TokenId    TokenId `json:"tokenId"`
	Color      string  `json:"color"`
	Claimed    bool    `json:"claimed"`
	AllClaimed bool    `json:"allClaimed"`
}

// ViewInput bundles the externally fetched read results the merge
// operates on. All network reads happen before the merge is invoked.
type ViewInput struct {
	Universe    []TokenId
	TotalTokens uint64
	Listings    []Listing
	Offers      []Offer

	// Owners holds the resolvable current owner per token. Stale
	// listing suppression only applies where an owner is known.
	Owners map[TokenId]common.Address

	// OwnedByCurrentUser is the set of tokens the connected account
	// owns. Empty when no wallet is connected.
	OwnedByCurrentUser map[TokenId]bool

	CurrentUser *common.Address

	// TokenSymbol is used for price/bid text ("ETH" when empty).
	TokenSymbol string
}
