package models

// ClaimPageData is a struct to hold info for the claim page
type ClaimPageData struct {
	Tokens         []*ClaimPageToken `json:"tokens"`
	TotalTokens    uint64            `json:"total_tokens"`
	MintedCount    uint64            `json:"minted_count"`
	AllClaimed     bool              `json:"all_claimed"`
	FilterInput    string            `json:"filter_input"`
	FilterApplied  bool              `json:"filter_applied"`
	FilterMatches  uint64            `json:"filter_matches"`
	FilterWarnings []string          `json:"filter_warnings"`
	CurrentWallet  string            `json:"current_wallet"`
	WalletNames    []string          `json:"wallet_names"`
	SnapshotHeight uint64            `json:"snapshot_height"`
	SnapshotTime   uint64            `json:"snapshot_time"`
}

type ClaimPageToken struct {
	TokenId uint64 `json:"token_id"`
	Color   string `json:"color"`
	Claimed bool   `json:"claimed"`
}
