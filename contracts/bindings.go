package contracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABI of the Rainbow SVGs collectible contract (ERC-721 plus the
// claim/enumeration extensions the frontend relies on).
const CollectionABIJson = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"colorId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getUnmintedColorIds","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokensOfOwner","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"isApprovedForAll","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// ABI of the marketplace contract.
const MarketABIJson = `[
	{"type":"function","name":"listItem","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancelListing","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"buyItem","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"placeOffer","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancelOffer","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"acceptOffer","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getAllListedItems","stateMutability":"view","inputs":[],"outputs":[{"name":"tokenIds","type":"uint256[]"},{"name":"listings","type":"tuple[]","components":[{"name":"seller","type":"address"},{"name":"price","type":"uint256"},{"name":"isActive","type":"bool"}]}]},
	{"type":"function","name":"getAllOffers","stateMutability":"view","inputs":[],"outputs":[{"name":"tokenIds","type":"uint256[]"},{"name":"offers","type":"tuple[]","components":[{"name":"bidder","type":"address"},{"name":"amount","type":"uint256"}]}]},
	{"type":"function","name":"getHighestOffer","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"bidder","type":"address"},{"name":"amount","type":"uint256"}]}
]`

var (
	CollectionABI abi.ABI
	MarketABI     abi.ABI
)

func init() {
	var err error
	CollectionABI, err = abi.JSON(strings.NewReader(CollectionABIJson))
	if err != nil {
		panic(fmt.Errorf("error parsing collection abi: %w", err))
	}
	MarketABI, err = abi.JSON(strings.NewReader(MarketABIJson))
	if err != nil {
		panic(fmt.Errorf("error parsing market abi: %w", err))
	}
}

// MarketListing mirrors the listing tuple of the marketplace contract.
type MarketListing struct {
	Seller   common.Address
	Price    *big.Int
	IsActive bool
}

// MarketOffer mirrors the offer tuple of the marketplace contract.
type MarketOffer struct {
	Bidder common.Address
	Amount *big.Int
}

// UnpackListedItems decodes the getAllListedItems return data.
func UnpackListedItems(data []byte) ([]*big.Int, []MarketListing, error) {
	out, err := MarketABI.Unpack("getAllListedItems", data)
	if err != nil {
		return nil, nil, err
	}
	tokenIds := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	listings := *abi.ConvertType(out[1], new([]MarketListing)).(*[]MarketListing)
	if len(tokenIds) != len(listings) {
		return nil, nil, fmt.Errorf("listed items length mismatch: %v ids, %v listings", len(tokenIds), len(listings))
	}
	return tokenIds, listings, nil
}

// UnpackAllOffers decodes the getAllOffers return data.
func UnpackAllOffers(data []byte) ([]*big.Int, []MarketOffer, error) {
	out, err := MarketABI.Unpack("getAllOffers", data)
	if err != nil {
		return nil, nil, err
	}
	tokenIds := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	offers := *abi.ConvertType(out[1], new([]MarketOffer)).(*[]MarketOffer)
	if len(tokenIds) != len(offers) {
		return nil, nil, fmt.Errorf("offers length mismatch: %v ids, %v offers", len(tokenIds), len(offers))
	}
	return tokenIds, offers, nil
}

// UnpackHighestOffer decodes the getHighestOffer return data.
func UnpackHighestOffer(data []byte) (*MarketOffer, error) {
	out, err := MarketABI.Unpack("getHighestOffer", data)
	if err != nil {
		return nil, err
	}
	return &MarketOffer{
		Bidder: *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Amount: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
	}, nil
}

// UnpackTokenIds decodes a plain uint256[] return value.
func UnpackTokenIds(contractAbi abi.ABI, method string, data []byte) ([]*big.Int, error) {
	out, err := contractAbi.Unpack(method, data)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// UnpackAddress decodes a single address return value.
func UnpackAddress(contractAbi abi.ABI, method string, data []byte) (common.Address, error) {
	out, err := contractAbi.Unpack(method, data)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// UnpackBool decodes a single bool return value.
func UnpackBool(contractAbi abi.ABI, method string, data []byte) (bool, error) {
	out, err := contractAbi.Unpack(method, data)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}
