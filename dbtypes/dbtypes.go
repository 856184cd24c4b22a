package dbtypes

type UiState struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// MarketActivity is one observed change of a token between two market
// snapshots (mint, listing, sale, offer). Amounts are wei as decimal
// strings to stay exact across both engines.
type MarketActivity struct {
	Id        uint64 `db:"id"`
	TokenId   uint64 `db:"token_id"`
	Kind      string `db:"kind"`
	Actor     []byte `db:"actor"`
	Amount    string `db:"amount"`
	FirstSeen uint64 `db:"first_seen"`
}

const (
	ActivityKindMint          = "mint"
	ActivityKindListed        = "listed"
	ActivityKindUnlisted      = "unlisted"
	ActivityKindSold          = "sold"
	ActivityKindOfferPlaced   = "offer_placed"
	ActivityKindOfferRemoved  = "offer_removed"
	ActivityKindOfferAccepted = "offer_accepted"
)
