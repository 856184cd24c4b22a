package market

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000Bb")
	addrC = common.HexToAddress("0x00000000000000000000000000000000000000Cc")
)

func universe(n uint64) []TokenId {
	ids := make([]TokenId, 0, n)
	for i := uint64(1); i <= n; i++ {
		ids = append(ids, TokenId(i))
	}
	return ids
}

func wei(eth int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(eth), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func itemOrder(items []*ViewItem) []TokenId {
	order := make([]TokenId, 0, len(items))
	for _, item := range items {
		order = append(order, item.TokenId)
	}
	return order
}

func TestBuildMarketViewCompleteness(t *testing.T) {
	input := &ViewInput{
		Universe:    universe(10),
		TotalTokens: 10,
		Listings: []Listing{
			{TokenId: 3, Seller: addrA, Price: wei(5), IsActive: true},
			{TokenId: 200, Seller: addrA, Price: wei(1), IsActive: true}, // outside universe, ignored
		},
		Offers: []Offer{
			{TokenId: 7, Bidder: addrB, Amount: wei(1)},
			{TokenId: 99, Bidder: addrB, Amount: wei(1)}, // outside universe, ignored
		},
	}

	items := BuildMarketView(input)
	if len(items) != 10 {
		t.Fatalf("expected 10 items, got %v", len(items))
	}

	seen := map[TokenId]bool{}
	for _, item := range items {
		if seen[item.TokenId] {
			t.Errorf("duplicate item for token %v", item.TokenId)
		}
		seen[item.TokenId] = true
	}
	for i := uint64(1); i <= 10; i++ {
		if !seen[TokenId(i)] {
			t.Errorf("missing item for token %v", i)
		}
	}
}

func TestBuildMarketViewRanking(t *testing.T) {
	input := &ViewInput{
		Universe:    []TokenId{1, 2, 3},
		TotalTokens: 3,
		Listings: []Listing{
			{TokenId: 3, Seller: addrA, Price: wei(5), IsActive: true},
			{TokenId: 1, Seller: addrA, Price: wei(2), IsActive: true},
			{TokenId: 2, Seller: addrA, Price: wei(9), IsActive: false},
		},
	}

	items := BuildMarketView(input)
	expected := []TokenId{1, 3, 2}
	if got := itemOrder(items); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected order %v, got %v", expected, got)
	}
}

func TestBuildMarketViewEmptyUniverse(t *testing.T) {
	items := BuildMarketView(&ViewInput{TotalTokens: 250})
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %v items", len(items))
	}
}

func TestBuildMarketViewSelfTradeGuard(t *testing.T) {
	input := &ViewInput{
		Universe:    universe(10),
		TotalTokens: 10,
		Listings: []Listing{
			{TokenId: 7, Seller: addrA, Price: wei(3), IsActive: true},
		},
		Offers: []Offer{
			{TokenId: 7, Bidder: addrB, Amount: wei(1)},
		},
		OwnedByCurrentUser: map[TokenId]bool{7: true},
		CurrentUser:        &addrA,
	}

	items := BuildMarketView(input)
	var item7 *ViewItem
	for _, item := range items {
		if item.TokenId == 7 {
			item7 = item
		}
	}
	if item7 == nil {
		t.Fatal("missing item for token 7")
	}
	if item7.Actions.CanBuy {
		t.Error("owner must not be able to buy their own token")
	}
	if item7.Actions.CanOffer {
		t.Error("owner must not be able to bid on their own token")
	}
	if item7.Actions.CanCancelOffer {
		t.Error("owner must not hold a cancelable offer on their own token")
	}
	if !item7.Actions.CanAcceptOffer {
		t.Error("owner should be able to accept the standing offer")
	}
	if !item7.Actions.CanCancelListing {
		t.Error("owner should be able to cancel their own listing")
	}
}

func TestBuildMarketViewStaleListingSuppression(t *testing.T) {
	input := &ViewInput{
		Universe:    universe(10),
		TotalTokens: 10,
		Listings: []Listing{
			{TokenId: 9, Seller: addrA, Price: wei(4), IsActive: true},
		},
		Owners: map[TokenId]common.Address{
			9: addrB,
		},
	}

	items := BuildMarketView(input)
	for _, item := range items {
		if item.TokenId != 9 {
			continue
		}
		if item.IsActive {
			t.Error("listing with outdated seller must be suppressed")
		}
		if item.PriceText != "" {
			t.Errorf("suppressed listing must render empty price text, got %q", item.PriceText)
		}
	}
}

func TestBuildMarketViewNoAccountGuard(t *testing.T) {
	input := &ViewInput{
		Universe:    universe(5),
		TotalTokens: 5,
		Listings: []Listing{
			{TokenId: 2, Seller: addrA, Price: wei(1), IsActive: true},
		},
		Offers: []Offer{
			{TokenId: 3, Bidder: addrB, Amount: wei(2)},
		},
	}

	for _, item := range BuildMarketView(input) {
		if item.Actions != (ActionFlags{}) {
			t.Errorf("token %v: expected all action flags false without account, got %+v", item.TokenId, item.Actions)
		}
	}
}

func TestBuildMarketViewBidAgainstSelfGuard(t *testing.T) {
	input := &ViewInput{
		Universe:    universe(5),
		TotalTokens: 5,
		Offers: []Offer{
			{TokenId: 4, Bidder: addrC, Amount: wei(2)},
		},
		CurrentUser: &addrC,
	}

	for _, item := range BuildMarketView(input) {
		if item.TokenId == 4 {
			if item.Actions.CanOffer {
				t.Error("highest bidder must not re-offer over themselves")
			}
			if !item.Actions.CanCancelOffer {
				t.Error("highest bidder must be able to cancel their offer")
			}
		} else if !item.Actions.CanOffer {
			t.Errorf("token %v: non-bidder should be able to offer", item.TokenId)
		}
	}
}

func TestBuildMarketViewZeroPriceText(t *testing.T) {
	input := &ViewInput{
		Universe:    universe(3),
		TotalTokens: 3,
		Listings: []Listing{
			{TokenId: 1, Seller: addrA, Price: big.NewInt(0), IsActive: true},
		},
	}

	for _, item := range BuildMarketView(input) {
		if item.TokenId == 1 && item.PriceText != "" {
			t.Errorf("zero price must yield empty price text, got %q", item.PriceText)
		}
	}
}

func TestBuildMarketViewIdempotence(t *testing.T) {
	build := func() []*ViewItem {
		return BuildMarketView(&ViewInput{
			Universe:    universe(20),
			TotalTokens: 20,
			Listings: []Listing{
				{TokenId: 5, Seller: addrA, Price: wei(2), IsActive: true},
				{TokenId: 12, Seller: addrB, Price: wei(2), IsActive: true},
				{TokenId: 9, Seller: addrA, Price: wei(1), IsActive: true},
			},
			Offers: []Offer{
				{TokenId: 12, Bidder: addrC, Amount: wei(1)},
			},
			CurrentUser: &addrC,
		})
	}

	first := build()
	second := build()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must produce identical ordered output")
	}

	// equal prices fall back to id order
	order := itemOrder(first)
	if order[0] != 9 || order[1] != 5 || order[2] != 12 {
		t.Fatalf("unexpected ranking for tied prices: %v", order[:3])
	}
}

func TestBuildClaimView(t *testing.T) {
	items := BuildClaimView(universe(5), []TokenId{2, 4}, 5)
	if len(items) != 5 {
		t.Fatalf("expected 5 claim items, got %v", len(items))
	}
	for i, item := range items {
		if item.TokenId != TokenId(i+1) {
			t.Fatalf("claim view must keep natural id order, got %v at index %v", item.TokenId, i)
		}
	}
	expectClaimed := map[TokenId]bool{1: true, 2: false, 3: true, 4: false, 5: true}
	for _, item := range items {
		if item.Claimed != expectClaimed[item.TokenId] {
			t.Errorf("token %v: claimed = %v, want %v", item.TokenId, item.Claimed, expectClaimed[item.TokenId])
		}
		if item.AllClaimed {
			t.Errorf("token %v: allClaimed should be false while unminted ids remain", item.TokenId)
		}
	}

	// empty unminted list collapses to the fully claimed state
	for _, item := range BuildClaimView(universe(5), nil, 5) {
		if !item.Claimed || !item.AllClaimed {
			t.Errorf("token %v: expected claimed+allClaimed with empty unminted set", item.TokenId)
		}
	}
}

func TestTokenColor(t *testing.T) {
	tests := []struct {
		id       TokenId
		total    uint64
		expected string
	}{
		{1, 250, "hsl(0, 100%, 50%)"},
		{2, 250, "hsl(1, 100%, 50%)"},
		{126, 250, "hsl(180, 100%, 50%)"},
		{250, 250, "hsl(358, 100%, 50%)"},
		{1, 4, "hsl(0, 100%, 50%)"},
		{3, 4, "hsl(180, 100%, 50%)"},
	}
	for _, tt := range tests {
		if got := TokenColor(tt.id, tt.total); got != tt.expected {
			t.Errorf("TokenColor(%v, %v) = %q, want %q", tt.id, tt.total, got, tt.expected)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		wei      *big.Int
		expected string
	}{
		{nil, ""},
		{big.NewInt(0), ""},
		{wei(1), "1 ETH"},
		{new(big.Int).Div(wei(1), big.NewInt(2)), "0.5 ETH"},
		{new(big.Int).Div(wei(3), big.NewInt(4)), "0.75 ETH"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.wei, "ETH"); got != tt.expected {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.wei, got, tt.expected)
		}
	}
}
