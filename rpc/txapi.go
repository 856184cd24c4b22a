package rpc

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rainbowsvgs/spectra/contracts"
	"github.com/rainbowsvgs/spectra/market"
)

// TxWallet wraps a server-side signing key and the bound contract
// instances needed for mutating marketplace calls.
type TxWallet struct {
	name       string
	privKey    *ecdsa.PrivateKey
	address    common.Address
	chainId    *big.Int
	client     *ExecutionClient
	collection *bind.BoundContract
	marketCtr  *bind.BoundContract

	collectionAddr common.Address
	marketAddr     common.Address
}

// PendingTx tracks a submitted transaction until its receipt lands.
type PendingTx struct {
	Hash   common.Hash
	tx     *types.Transaction
	client *ExecutionClient
}

func NewTxWallet(name, privKeyHex string, chainId *big.Int, client *ExecutionClient, collectionAddr, marketAddr common.Address) (*TxWallet, error) {
	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key for wallet %v: %w", name, err)
	}

	wallet := &TxWallet{
		name:           name,
		privKey:        privKey,
		address:        crypto.PubkeyToAddress(privKey.PublicKey),
		chainId:        chainId,
		client:         client,
		collectionAddr: collectionAddr,
		marketAddr:     marketAddr,
	}
	wallet.collection = bind.NewBoundContract(collectionAddr, contracts.CollectionABI, client.GetEthClient(), client.GetEthClient(), client.GetEthClient())
	wallet.marketCtr = bind.NewBoundContract(marketAddr, contracts.MarketABI, client.GetEthClient(), client.GetEthClient(), client.GetEthClient())

	return wallet, nil
}

func (w *TxWallet) GetName() string {
	return w.name
}

func (w *TxWallet) GetAddress() common.Address {
	return w.address
}

func (w *TxWallet) transactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.privKey, w.chainId)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	if value != nil {
		opts.Value = value
	}
	return opts, nil
}

func (w *TxWallet) Mint(ctx context.Context, tokenId market.TokenId) (*PendingTx, error) {
	return w.submit(ctx, w.collection, "mint", nil, tokenBig(tokenId))
}

// ListItem grants the marketplace operator approval first when it is
// missing, then submits the listing itself.
func (w *TxWallet) ListItem(ctx context.Context, tokenId market.TokenId, price *big.Int) (*PendingTx, error) {
	reader := NewMarketReader(w.client, w.collectionAddr, w.marketAddr)
	approved, err := reader.IsApprovedForAll(ctx, w.address, w.marketAddr)
	if err != nil {
		return nil, err
	}
	if !approved {
		approveTx, err := w.submit(ctx, w.collection, "setApprovalForAll", nil, w.marketAddr, true)
		if err != nil {
			return nil, err
		}
		if err := approveTx.Wait(ctx); err != nil {
			return nil, fmt.Errorf("marketplace approval failed: %w", err)
		}
	}
	return w.submit(ctx, w.marketCtr, "listItem", nil, tokenBig(tokenId), price)
}

func (w *TxWallet) CancelListing(ctx context.Context, tokenId market.TokenId) (*PendingTx, error) {
	return w.submit(ctx, w.marketCtr, "cancelListing", nil, tokenBig(tokenId))
}

func (w *TxWallet) BuyItem(ctx context.Context, tokenId market.TokenId, price *big.Int) (*PendingTx, error) {
	return w.submit(ctx, w.marketCtr, "buyItem", price, tokenBig(tokenId))
}

func (w *TxWallet) PlaceOffer(ctx context.Context, tokenId market.TokenId, amount *big.Int) (*PendingTx, error) {
	return w.submit(ctx, w.marketCtr, "placeOffer", amount, tokenBig(tokenId))
}

func (w *TxWallet) CancelOffer(ctx context.Context, tokenId market.TokenId) (*PendingTx, error) {
	return w.submit(ctx, w.marketCtr, "cancelOffer", nil, tokenBig(tokenId))
}

func (w *TxWallet) AcceptOffer(ctx context.Context, tokenId market.TokenId) (*PendingTx, error) {
	return w.submit(ctx, w.marketCtr, "acceptOffer", nil, tokenBig(tokenId))
}

func (w *TxWallet) submit(ctx context.Context, contract *bind.BoundContract, method string, value *big.Int, args ...interface{}) (*PendingTx, error) {
	opts, err := w.transactOpts(ctx, value)
	if err != nil {
		return nil, err
	}

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("error sending %v tx: %w", method, err)
	}

	logger.WithField("wallet", w.name).Infof("submitted %v tx: %v", method, tx.Hash().Hex())

	return &PendingTx{
		Hash:   tx.Hash(),
		tx:     tx,
		client: w.client,
	}, nil
}

// Wait blocks until the transaction is mined and checks the receipt
// status. The passed context bounds the confirmation time.
func (p *PendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.client.GetEthClient(), p.tx)
	if err != nil {
		return fmt.Errorf("error awaiting tx %v: %w", p.Hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("tx %v reverted", p.Hash.Hex())
	}
	return nil
}

func tokenBig(tokenId market.TokenId) *big.Int {
	return new(big.Int).SetUint64(uint64(tokenId))
}
