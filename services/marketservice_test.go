package services

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainbowsvgs/spectra/dbtypes"
	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

func testSnapshot(mutate func(s *MarketSnapshot)) *MarketSnapshot {
	snapshot := &MarketSnapshot{
		Updated:  time.Unix(1700000000, 0),
		Universe: []market.TokenId{1, 2, 3},
		Unminted: map[market.TokenId]bool{},
		Listings: map[market.TokenId]market.Listing{},
		Offers:   map[market.TokenId]market.Offer{},
		Owners:   map[market.TokenId]common.Address{},
	}
	if mutate != nil {
		mutate(snapshot)
	}
	return snapshot
}

func TestDiffSnapshots(t *testing.T) {
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := []struct {
		name     string
		previous *MarketSnapshot
		current  *MarketSnapshot
		expected []*dbtypes.MarketActivity
	}{
		{
			name:     "no changes",
			previous: testSnapshot(nil),
			current:  testSnapshot(nil),
			expected: []*dbtypes.MarketActivity{},
		},
		{
			name: "mint",
			previous: testSnapshot(func(s *MarketSnapshot) {
				s.Unminted[2] = true
			}),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Owners[2] = alice
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 2, Kind: dbtypes.ActivityKindMint, Actor: alice.Bytes()},
			},
		},
		{
			name:     "listed",
			previous: testSnapshot(nil),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Listings[1] = market.Listing{TokenId: 1, Seller: alice, Price: big.NewInt(100), IsActive: true}
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 1, Kind: dbtypes.ActivityKindListed, Actor: alice.Bytes(), Amount: "100"},
			},
		},
		{
			name: "unlisted without owner change",
			previous: testSnapshot(func(s *MarketSnapshot) {
				s.Listings[1] = market.Listing{TokenId: 1, Seller: alice, Price: big.NewInt(100), IsActive: true}
				s.Owners[1] = alice
			}),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Owners[1] = alice
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 1, Kind: dbtypes.ActivityKindUnlisted, Actor: alice.Bytes()},
			},
		},
		{
			name: "sold when listing vanishes and owner changes",
			previous: testSnapshot(func(s *MarketSnapshot) {
				s.Listings[1] = market.Listing{TokenId: 1, Seller: alice, Price: big.NewInt(250), IsActive: true}
				s.Owners[1] = alice
			}),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Owners[1] = bob
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 1, Kind: dbtypes.ActivityKindSold, Actor: bob.Bytes(), Amount: "250"},
			},
		},
		{
			name:     "offer placed",
			previous: testSnapshot(nil),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Offers[3] = market.Offer{TokenId: 3, Bidder: bob, Amount: big.NewInt(50)}
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 3, Kind: dbtypes.ActivityKindOfferPlaced, Actor: bob.Bytes(), Amount: "50"},
			},
		},
		{
			name: "offer raised by same bidder",
			previous: testSnapshot(func(s *MarketSnapshot) {
				s.Offers[3] = market.Offer{TokenId: 3, Bidder: bob, Amount: big.NewInt(50)}
			}),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Offers[3] = market.Offer{TokenId: 3, Bidder: bob, Amount: big.NewInt(80)}
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 3, Kind: dbtypes.ActivityKindOfferPlaced, Actor: bob.Bytes(), Amount: "80"},
			},
		},
		{
			name: "offer accepted when bidder becomes owner",
			previous: testSnapshot(func(s *MarketSnapshot) {
				s.Offers[2] = market.Offer{TokenId: 2, Bidder: bob, Amount: big.NewInt(70)}
				s.Owners[2] = alice
			}),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Owners[2] = bob
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 2, Kind: dbtypes.ActivityKindOfferAccepted, Actor: bob.Bytes(), Amount: "70"},
			},
		},
		{
			name: "offer removed when bidder did not become owner",
			previous: testSnapshot(func(s *MarketSnapshot) {
				s.Offers[2] = market.Offer{TokenId: 2, Bidder: bob, Amount: big.NewInt(70)}
				s.Owners[2] = alice
			}),
			current: testSnapshot(func(s *MarketSnapshot) {
				s.Owners[2] = alice
			}),
			expected: []*dbtypes.MarketActivity{
				{TokenId: 2, Kind: dbtypes.ActivityKindOfferRemoved, Actor: bob.Bytes()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activities := diffSnapshots(tt.previous, tt.current)

			if len(activities) != len(tt.expected) {
				t.Fatalf("expected %d activities, got %d", len(tt.expected), len(activities))
			}

			for i, expected := range tt.expected {
				actual := activities[i]
				if actual.TokenId != expected.TokenId {
					t.Errorf("activity %d: expected token %d, got %d", i, expected.TokenId, actual.TokenId)
				}
				if actual.Kind != expected.Kind {
					t.Errorf("activity %d: expected kind %q, got %q", i, expected.Kind, actual.Kind)
				}
				if string(actual.Actor) != string(expected.Actor) {
					t.Errorf("activity %d: unexpected actor %x", i, actual.Actor)
				}
				if actual.Amount != expected.Amount {
					t.Errorf("activity %d: expected amount %q, got %q", i, expected.Amount, actual.Amount)
				}
				if actual.FirstSeen != uint64(tt.current.Updated.Unix()) {
					t.Errorf("activity %d: unexpected first seen %d", i, actual.FirstSeen)
				}
			}
		})
	}
}

func TestBuildViewInput(t *testing.T) {
	utils.Config = &types.Config{}
	utils.Config.Chain.Config.CollectionSize = 3

	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ms := &MarketService{}
	snapshot := testSnapshot(func(s *MarketSnapshot) {
		s.Listings[1] = market.Listing{TokenId: 1, Seller: alice, Price: big.NewInt(100), IsActive: true}
		s.Offers[2] = market.Offer{TokenId: 2, Bidder: bob, Amount: big.NewInt(50)}
		s.Owners[1] = alice
		s.Owners[2] = bob
	})

	input := ms.BuildViewInput(snapshot, &alice)
	if len(input.Listings) != 1 || input.Listings[0].TokenId != 1 {
		t.Errorf("unexpected listings: %+v", input.Listings)
	}
	if len(input.Offers) != 1 || input.Offers[0].TokenId != 2 {
		t.Errorf("unexpected offers: %+v", input.Offers)
	}
	if !input.OwnedByCurrentUser[1] || input.OwnedByCurrentUser[2] {
		t.Errorf("unexpected ownership set: %+v", input.OwnedByCurrentUser)
	}

	// the input must feed straight into the view model builder
	items := market.BuildMarketView(&input)
	if len(items) != 3 {
		t.Fatalf("expected 3 view items, got %d", len(items))
	}
	if items[0].TokenId != 1 || !items[0].IsActive {
		t.Errorf("expected the listed token ranked first, got %+v", items[0])
	}
}

func TestInstallSnapshotGenerationOrder(t *testing.T) {
	ms := &MarketService{}

	first := testSnapshot(nil)
	first.Generation = 5
	if _, installed := ms.installSnapshot(first); !installed {
		t.Fatal("expected first snapshot to install")
	}

	// a slow refresh that started earlier must not overwrite the
	// newer snapshot
	stale := testSnapshot(nil)
	stale.Generation = 3
	previous, installed := ms.installSnapshot(stale)
	if installed {
		t.Error("expected stale snapshot to be discarded")
	}
	if previous == nil || previous.Generation != 5 {
		t.Errorf("expected previous generation 5, got %+v", previous)
	}
	if got := ms.GetSnapshot(); got == nil || got.Generation != 5 {
		t.Errorf("expected snapshot generation 5 to stay installed, got %+v", got)
	}

	next := testSnapshot(nil)
	next.Generation = 6
	if _, installed := ms.installSnapshot(next); !installed {
		t.Error("expected newer snapshot to install")
	}
	if got := ms.GetSnapshot(); got == nil || got.Generation != 6 {
		t.Errorf("expected snapshot generation 6, got %+v", got)
	}
}

// overlapReader blocks each top level read until all three have been
// issued, so the loader only completes when the reads run concurrently.
type overlapReader struct {
	pending int32
	release chan struct{}
	owner   common.Address
}

func (r *overlapReader) join() error {
	if atomic.AddInt32(&r.pending, -1) == 0 {
		close(r.release)
	}
	select {
	case <-r.release:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("top level reads did not overlap")
	}
}

func (r *overlapReader) GetUnmintedColorIds(ctx context.Context) ([]market.TokenId, error) {
	if err := r.join(); err != nil {
		return nil, err
	}
	return []market.TokenId{3}, nil
}

func (r *overlapReader) GetAllListedItems(ctx context.Context) ([]market.Listing, error) {
	if err := r.join(); err != nil {
		return nil, err
	}
	return []market.Listing{{TokenId: 1, Seller: r.owner, Price: big.NewInt(100), IsActive: true}}, nil
}

func (r *overlapReader) GetAllOffers(ctx context.Context) ([]market.Offer, error) {
	if err := r.join(); err != nil {
		return nil, err
	}
	return []market.Offer{{TokenId: 2, Bidder: r.owner, Amount: big.NewInt(5)}}, nil
}

func (r *overlapReader) GetHighestOffer(ctx context.Context, tokenId market.TokenId) (*market.Offer, error) {
	return nil, nil
}

func (r *overlapReader) GetOwnerOf(ctx context.Context, tokenId market.TokenId) (common.Address, error) {
	return r.owner, nil
}

func TestLoadSnapshotFansOutReads(t *testing.T) {
	utils.Config = &types.Config{}
	utils.Config.Chain.Config.CollectionSize = 3

	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	reader := &overlapReader{pending: 3, release: make(chan struct{}), owner: alice}

	ms := &MarketService{}
	snapshot, err := ms.loadSnapshot(context.Background(), reader, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.HeadNumber != 42 {
		t.Errorf("expected head number 42, got %d", snapshot.HeadNumber)
	}
	if !snapshot.Unminted[3] || len(snapshot.Unminted) != 1 {
		t.Errorf("unexpected unminted set: %+v", snapshot.Unminted)
	}
	if listing, ok := snapshot.Listings[1]; !ok || !listing.IsActive {
		t.Errorf("unexpected listings: %+v", snapshot.Listings)
	}
	if offer, ok := snapshot.Offers[2]; !ok || offer.Amount.Int64() != 5 {
		t.Errorf("unexpected offers: %+v", snapshot.Offers)
	}
	if snapshot.Owners[1] != alice || snapshot.Owners[2] != alice {
		t.Errorf("unexpected owners: %+v", snapshot.Owners)
	}
}

func TestGetUnmintedTokenIds(t *testing.T) {
	ms := &MarketService{}
	snapshot := testSnapshot(func(s *MarketSnapshot) {
		s.Unminted[3] = true
		s.Unminted[1] = true
	})

	ids := ms.GetUnmintedTokenIds(snapshot)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("expected sorted ids [1 3], got %v", ids)
	}
}

func TestGetTokensOfOwner(t *testing.T) {
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ms := &MarketService{}
	snapshot := testSnapshot(func(s *MarketSnapshot) {
		s.Owners[3] = alice
		s.Owners[1] = alice
		s.Owners[2] = bob
	})

	ids := ms.GetTokensOfOwner(snapshot, alice)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("expected sorted ids [1 3], got %v", ids)
	}
}
