package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/rpc"
	"github.com/rainbowsvgs/spectra/utils"
)

type TxAction string

const (
	TxActionMint          TxAction = "mint"
	TxActionList          TxAction = "list"
	TxActionCancelListing TxAction = "cancel_listing"
	TxActionBuy           TxAction = "buy"
	TxActionPlaceOffer    TxAction = "place_offer"
	TxActionCancelOffer   TxAction = "cancel_offer"
	TxActionAcceptOffer   TxAction = "accept_offer"
)

// TxService executes marketplace mutations with the configured signing
// wallets. Actions on the same token are strictly sequential, a token
// with a transaction in flight rejects further actions until the
// receipt lands.
type TxService struct {
	logger        logrus.FieldLogger
	marketService *MarketService

	inflightMutex sync.Mutex
	inflight      map[market.TokenId]TxAction

	txCount  *prometheus.CounterVec
	txErrors *prometheus.CounterVec
}

// TxResult reports a confirmed transaction back to the caller.
type TxResult struct {
	Action  TxAction `json:"action"`
	TokenId uint64   `json:"tokenId"`
	TxHash  string   `json:"txHash"`
	Wallet  string   `json:"wallet"`
}

var GlobalTxService *TxService

var ErrTokenBusy = fmt.Errorf("token has a transaction in flight")

// StartTxService is used to initialize the global tx service
func StartTxService(logger logrus.FieldLogger, marketService *MarketService) error {
	if GlobalTxService != nil {
		return nil
	}

	GlobalTxService = &TxService{
		logger:        logger,
		marketService: marketService,
		inflight:      map[market.TokenId]TxAction{},

		txCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectra_tx_count",
			Help: "Number of submitted marketplace transactions",
		}, []string{"action"}),
		txErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectra_tx_errors",
			Help: "Number of failed marketplace transactions",
		}, []string{"action"}),
	}

	return nil
}

// ExecuteAction runs one marketplace mutation end to end: submit, wait
// for the receipt, then trigger a snapshot refresh. The call blocks
// until the transaction is confirmed or the confirmation timeout hits.
func (ts *TxService) ExecuteAction(ctx context.Context, walletName string, action TxAction, tokenId market.TokenId, amount *big.Int) (*TxResult, error) {
	walletConfig := ts.marketService.GetWalletConfig(walletName)
	if walletConfig == nil {
		return nil, fmt.Errorf("unknown wallet: %v", walletName)
	}

	totalTokens := utils.Config.Chain.Config.CollectionSize
	if tokenId < 1 || uint64(tokenId) > totalTokens {
		return nil, fmt.Errorf("token id out of range: %v", tokenId)
	}

	if !ts.acquireToken(tokenId, action) {
		return nil, ErrTokenBusy
	}
	defer ts.releaseToken(tokenId)

	client := ts.marketService.pool.GetReadyEndpoint()
	if client == nil {
		return nil, fmt.Errorf("no ready execution endpoint")
	}

	chainId := new(big.Int).SetUint64(utils.Config.Chain.Config.ChainId)
	wallet, err := rpc.NewTxWallet(walletConfig.Name, walletConfig.PrivateKey, chainId, client.GetRPCClient(),
		ts.marketService.GetCollectionAddress(), ts.marketService.GetMarketAddress())
	if err != nil {
		return nil, err
	}

	confirmationTimeout := utils.Config.Market.ConfirmationTimeout
	if confirmationTimeout == 0 {
		confirmationTimeout = 2 * time.Minute
	}

	txCtx, cancel := context.WithTimeout(ctx, confirmationTimeout)
	defer cancel()

	ts.txCount.WithLabelValues(string(action)).Inc()

	pendingTx, err := ts.submitAction(txCtx, wallet, action, tokenId, amount)
	if err != nil {
		ts.txErrors.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	err = pendingTx.Wait(txCtx)
	if err != nil {
		ts.txErrors.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	ts.logger.WithFields(logrus.Fields{
		"wallet": wallet.GetName(),
		"action": action,
		"token":  tokenId,
	}).Infof("transaction confirmed: %v", pendingTx.Hash.Hex())

	ts.marketService.TriggerRefresh()

	return &TxResult{
		Action:  action,
		TokenId: uint64(tokenId),
		TxHash:  pendingTx.Hash.Hex(),
		Wallet:  wallet.GetName(),
	}, nil
}

func (ts *TxService) submitAction(ctx context.Context, wallet *rpc.TxWallet, action TxAction, tokenId market.TokenId, amount *big.Int) (*rpc.PendingTx, error) {
	switch action {
	case TxActionMint:
		return wallet.Mint(ctx, tokenId)
	case TxActionList:
		if amount == nil || amount.Sign() <= 0 {
			return nil, fmt.Errorf("listing price must be positive")
		}
		return wallet.ListItem(ctx, tokenId, amount)
	case TxActionCancelListing:
		return wallet.CancelListing(ctx, tokenId)
	case TxActionBuy:
		price, err := ts.lookupListingPrice(tokenId)
		if err != nil {
			return nil, err
		}
		return wallet.BuyItem(ctx, tokenId, price)
	case TxActionPlaceOffer:
		if amount == nil || amount.Sign() <= 0 {
			return nil, fmt.Errorf("offer amount must be positive")
		}
		return wallet.PlaceOffer(ctx, tokenId, amount)
	case TxActionCancelOffer:
		return wallet.CancelOffer(ctx, tokenId)
	case TxActionAcceptOffer:
		return wallet.AcceptOffer(ctx, tokenId)
	default:
		return nil, fmt.Errorf("unknown action: %v", action)
	}
}

// lookupListingPrice resolves the payable amount of a buy from the
// latest snapshot, the caller never supplies the price itself.
func (ts *TxService) lookupListingPrice(tokenId market.TokenId) (*big.Int, error) {
	snapshot := ts.marketService.GetSnapshot()
	if snapshot == nil {
		return nil, fmt.Errorf("market snapshot not available")
	}

	listing, found := snapshot.Listings[tokenId]
	if !found || !listing.IsActive {
		return nil, fmt.Errorf("token %v is not listed", tokenId)
	}

	return listing.Price, nil
}

func (ts *TxService) acquireToken(tokenId market.TokenId, action TxAction) bool {
	ts.inflightMutex.Lock()
	defer ts.inflightMutex.Unlock()

	if _, busy := ts.inflight[tokenId]; busy {
		return false
	}

	ts.inflight[tokenId] = action

	return true
}

func (ts *TxService) releaseToken(tokenId market.TokenId) {
	ts.inflightMutex.Lock()
	defer ts.inflightMutex.Unlock()

	delete(ts.inflight, tokenId)
}

// GetInflightAction reports the action currently pending for a token.
func (ts *TxService) GetInflightAction(tokenId market.TokenId) (TxAction, bool) {
	ts.inflightMutex.Lock()
	defer ts.inflightMutex.Unlock()

	action, busy := ts.inflight[tokenId]

	return action, busy
}
