package models

// MarketPageData is a struct to hold info for the market page
type MarketPageData struct {
	Items          []*MarketPageItem `json:"items"`
	TotalTokens    uint64            `json:"total_tokens"`
	ActiveListings uint64            `json:"active_listings"`
	FilterInput    string            `json:"filter_input"`
	FilterApplied  bool              `json:"filter_applied"`
	FilterMatches  uint64            `json:"filter_matches"`
	FilterWarnings []string          `json:"filter_warnings"`
	CurrentWallet  string            `json:"current_wallet"`
	WalletNames    []string          `json:"wallet_names"`
	TokenSymbol    string            `json:"token_symbol"`
	SnapshotHeight uint64            `json:"snapshot_height"`
	SnapshotTime   uint64            `json:"snapshot_time"`
}

type MarketPageItem struct {
	TokenId   uint64 `json:"token_id"`
	Color     string `json:"color"`
	IsActive  bool   `json:"is_active"`
	PriceText string `json:"price_text"`
	PriceWei  string `json:"price_wei"`
	Seller    string `json:"seller"`
	BidText   string `json:"bid_text"`
	Bidder    string `json:"bidder"`
	BidWei    string `json:"bid_wei"`
	Owned     bool   `json:"owned"`
	InFlight  bool   `json:"in_flight"`

	CanOffer         bool `json:"can_offer"`
	CanCancelOffer   bool `json:"can_cancel_offer"`
	CanBuy           bool `json:"can_buy"`
	CanList          bool `json:"can_list"`
	CanCancelListing bool `json:"can_cancel_listing"`
	CanAcceptOffer   bool `json:"can_accept_offer"`
}
