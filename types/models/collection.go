package models

// CollectionPageData is a struct to hold info for the collection page
type CollectionPageData struct {
	Address        string                 `json:"address"`
	Tokens         []*CollectionPageToken `json:"tokens"`
	TokenCount     uint64                 `json:"token_count"`
	Activities     []*ActivityEntry       `json:"activities"`
	SnapshotHeight uint64                 `json:"snapshot_height"`
	SnapshotTime   uint64                 `json:"snapshot_time"`
}

type CollectionPageToken struct {
	TokenId   uint64 `json:"token_id"`
	Color     string `json:"color"`
	IsListed  bool   `json:"is_listed"`
	PriceText string `json:"price_text"`
	BidText   string `json:"bid_text"`
}

type ActivityEntry struct {
	TokenId    uint64 `json:"token_id"`
	Color      string `json:"color"`
	Kind       string `json:"kind"`
	Actor      string `json:"actor"`
	AmountText string `json:"amount_text"`
	Time       uint64 `json:"time"`
}
