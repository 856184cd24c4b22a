package services

import (
	"context"
	"fmt"
	"math/big"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rainbowsvgs/spectra/clients/execution"
	"github.com/rainbowsvgs/spectra/db"
	"github.com/rainbowsvgs/spectra/dbtypes"
	"github.com/rainbowsvgs/spectra/market"
	"github.com/rainbowsvgs/spectra/metrics"
	"github.com/rainbowsvgs/spectra/rpc"
	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

// MarketService polls the collection & marketplace contracts and keeps
// the latest consistent snapshot of the whole token universe. All page
// and api handlers read from the snapshot, never from the chain
// directly.
type MarketService struct {
	logger         logrus.FieldLogger
	ctx            context.Context
	pool           *execution.Pool
	collectionAddr common.Address
	marketAddr     common.Address
	wallets        map[string]*types.WalletConfig

	snapshotMutex sync.RWMutex
	snapshot      *MarketSnapshot

	refreshMutex      sync.Mutex
	refreshGeneration uint64
	refreshTrigger    chan bool

	refreshCount    prometheus.Counter
	refreshErrors   prometheus.Counter
	refreshDuration prometheus.Histogram
	mintedTokens    prometheus.Gauge
	activeListings  prometheus.Gauge
}

// MarketSnapshot is one consistent view of the contract state. It is
// immutable once installed, readers may hold on to it across requests.
type MarketSnapshot struct {
	Generation uint64
	HeadNumber uint64
	Updated    time.Time

	Universe []market.TokenId
	Unminted map[market.TokenId]bool
	Listings map[market.TokenId]market.Listing
	Offers   map[market.TokenId]market.Offer
	Owners   map[market.TokenId]common.Address
}

var GlobalMarketService *MarketService

// StartMarketService is used to initialize the global market service
func StartMarketService(ctx context.Context, logger logrus.FieldLogger, pool *execution.Pool) error {
	if GlobalMarketService != nil {
		return nil
	}

	chainConfig := &utils.Config.Chain.Config

	wallets := map[string]*types.WalletConfig{}
	for idx := range utils.Config.Wallets {
		wallet := &utils.Config.Wallets[idx]
		wallets[strings.ToLower(wallet.Name)] = wallet
	}

	GlobalMarketService = &MarketService{
		logger:         logger,
		ctx:            ctx,
		pool:           pool,
		collectionAddr: common.HexToAddress(chainConfig.CollectionAddress),
		marketAddr:     common.HexToAddress(chainConfig.MarketAddress),
		wallets:        wallets,
		refreshTrigger: make(chan bool, 1),

		refreshCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectra_market_refresh_count",
			Help: "Number of market snapshot refreshes",
		}),
		refreshErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectra_market_refresh_errors",
			Help: "Number of failed market snapshot refreshes",
		}),
		refreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "spectra_market_refresh_duration",
			Help:    "Processing time for market snapshot refreshes in ms",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}),
		mintedTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spectra_market_minted_tokens",
			Help: "Number of minted tokens in the latest snapshot",
		}),
		activeListings: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spectra_market_active_listings",
			Help: "Number of active listings in the latest snapshot",
		}),
	}

	metrics.AddPreCollectFn(func() {
		snapshot := GlobalMarketService.GetSnapshot()
		if snapshot == nil {
			return
		}

		GlobalMarketService.mintedTokens.Set(float64(len(snapshot.Universe) - len(snapshot.Unminted)))

		activeCount := 0
		for _, listing := range snapshot.Listings {
			if listing.IsActive {
				activeCount++
			}
		}
		GlobalMarketService.activeListings.Set(float64(activeCount))
	})

	GlobalMarketService.restoreCustomEndpoints()

	go GlobalMarketService.runRefreshLoop()

	return nil
}

// restoreCustomEndpoints re-adds user supplied rpc endpoints that were
// persisted in a previous run.
func (ms *MarketService) restoreCustomEndpoints() {
	if !utils.Config.ExecutionApi.AllowCustomRpc {
		return
	}

	urls := []string{}
	_, err := db.GetUiState("custom_rpc_endpoints", &urls)
	if err != nil {
		return
	}

	for _, url := range urls {
		if _, err := ms.AddCustomEndpoint(url); err != nil {
			ms.logger.WithError(err).Warnf("could not restore custom rpc endpoint %v", url)
		}
	}
}

func (ms *MarketService) persistCustomEndpoints() {
	urls := []string{}
	for _, client := range ms.pool.GetAllEndpoints() {
		if strings.HasPrefix(client.GetName(), "custom-") {
			urls = append(urls, client.GetEndpointConfig().URL)
		}
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return db.SetUiState("custom_rpc_endpoints", urls, tx)
	})
	if err != nil {
		ms.logger.WithError(err).Warnf("could not persist custom rpc endpoints")
	}
}

func (ms *MarketService) GetSnapshot() *MarketSnapshot {
	ms.snapshotMutex.RLock()
	defer ms.snapshotMutex.RUnlock()

	return ms.snapshot
}

// AwaitSnapshot blocks until the first snapshot is available or the
// context expires.
func (ms *MarketService) AwaitSnapshot(ctx context.Context) *MarketSnapshot {
	for {
		snapshot := ms.GetSnapshot()
		if snapshot != nil {
			return snapshot
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// TriggerRefresh requests an immediate snapshot refresh. It does not
// block, concurrent triggers collapse into one refresh.
func (ms *MarketService) TriggerRefresh() {
	select {
	case ms.refreshTrigger <- true:
	default:
	}
}

func (ms *MarketService) GetCollectionAddress() common.Address {
	return ms.collectionAddr
}

func (ms *MarketService) GetMarketAddress() common.Address {
	return ms.marketAddr
}

func (ms *MarketService) GetWalletConfig(name string) *types.WalletConfig {
	return ms.wallets[strings.ToLower(name)]
}

// GetWalletAddress derives the address of a configured signing wallet.
func (ms *MarketService) GetWalletAddress(name string) (common.Address, error) {
	walletConfig := ms.GetWalletConfig(name)
	if walletConfig == nil {
		return common.Address{}, fmt.Errorf("unknown wallet: %v", name)
	}

	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(walletConfig.PrivateKey, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key for wallet %v: %w", name, err)
	}

	return crypto.PubkeyToAddress(privKey.PublicKey), nil
}

func (ms *MarketService) GetWalletNames() []string {
	names := make([]string, 0, len(ms.wallets))
	for _, wallet := range ms.wallets {
		names = append(names, wallet.Name)
	}
	sort.Strings(names)

	return names
}

// AddCustomEndpoint adds a user supplied rpc endpoint to the pool at
// runtime. The endpoint joins the scheduler once its health check and
// chain id verification pass.
func (ms *MarketService) AddCustomEndpoint(url string) (*execution.Client, error) {
	if !utils.Config.ExecutionApi.AllowCustomRpc {
		return nil, fmt.Errorf("custom rpc endpoints are disabled")
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return nil, fmt.Errorf("invalid rpc endpoint url")
	}

	for _, client := range ms.pool.GetAllEndpoints() {
		if client.GetEndpointConfig().URL == url {
			return client, nil
		}
	}

	client := ms.pool.AddEndpoint(&execution.ClientConfig{
		Name: fmt.Sprintf("custom-%v", len(ms.pool.GetAllEndpoints())),
		URL:  url,
	})
	ms.persistCustomEndpoints()

	return client, nil
}

// GetEndpoints returns all execution endpoints of the pool.
func (ms *MarketService) GetEndpoints() []*execution.Client {
	return ms.pool.GetAllEndpoints()
}

// HasReadyEndpoint reports whether at least one endpoint passed its
// health and chain id checks.
func (ms *MarketService) HasReadyEndpoint() bool {
	return ms.pool.GetReadyEndpoint() != nil
}

func (ms *MarketService) IsEndpointReady(client *execution.Client) bool {
	return ms.pool.IsClientReady(client)
}

func (ms *MarketService) runRefreshLoop() {
	defer func() {
		if err := recover(); err != nil {
			ms.logger.Errorf("uncaught panic in MarketService.runRefreshLoop subroutine: %v, stack: %v", err, string(debug.Stack()))
			time.Sleep(10 * time.Second)

			go ms.runRefreshLoop()
		}
	}()

	refreshInterval := utils.Config.Market.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = 30 * time.Second
	}

	for {
		err := ms.RefreshSnapshot(ms.ctx)
		if err != nil {
			ms.refreshErrors.Inc()
			ms.logger.Warnf("error refreshing market snapshot: %v", err)
		}

		select {
		case <-ms.ctx.Done():
			return
		case <-ms.refreshTrigger:
		case <-time.After(refreshInterval):
		}
	}
}

// RefreshSnapshot loads the full contract state and installs it as the
// latest snapshot. Refreshes are serialized and carry a generation
// counter so a slow refresh can never overwrite a newer one.
func (ms *MarketService) RefreshSnapshot(ctx context.Context) error {
	ms.refreshMutex.Lock()
	ms.refreshGeneration++
	generation := ms.refreshGeneration
	ms.refreshMutex.Unlock()

	startTime := time.Now()

	client := ms.pool.GetReadyEndpoint()
	if client == nil {
		awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client = ms.pool.AwaitReadyEndpoint(awaitCtx)
		if client == nil {
			return fmt.Errorf("no ready execution endpoint")
		}
	}

	callTimeout := utils.Config.ExecutionApi.CallTimeout
	if callTimeout == 0 {
		callTimeout = 60 * time.Second
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	reader := rpc.NewMarketReader(client.GetRPCClient(), ms.collectionAddr, ms.marketAddr)
	headNumber, _ := client.GetLastHead()

	snapshot, err := ms.loadSnapshot(callCtx, reader, headNumber)
	if err != nil {
		return err
	}

	snapshot.Generation = generation
	snapshot.Updated = time.Now()

	ms.refreshCount.Inc()
	ms.refreshDuration.Observe(float64(time.Since(startTime).Milliseconds()))

	previous, installed := ms.installSnapshot(snapshot)
	if !installed {
		ms.logger.Debugf("discarding stale market snapshot (generation %v < %v)", snapshot.Generation, previous.Generation)
		return nil
	}

	ms.logger.Debugf("market snapshot refreshed: generation %v, %v minted, %v listings, %v offers",
		snapshot.Generation, len(snapshot.Universe)-len(snapshot.Unminted), len(snapshot.Listings), len(snapshot.Offers))

	if !utils.Config.Market.DisableActivityLog {
		ms.recordActivities(previous, snapshot)
	}

	return nil
}

// installSnapshot makes the snapshot the current one unless a newer
// generation was installed in the meantime. It returns the replaced
// snapshot and whether the install happened.
func (ms *MarketService) installSnapshot(snapshot *MarketSnapshot) (*MarketSnapshot, bool) {
	ms.snapshotMutex.Lock()
	defer ms.snapshotMutex.Unlock()

	previous := ms.snapshot
	if previous != nil && previous.Generation > snapshot.Generation {
		return previous, false
	}
	ms.snapshot = snapshot

	return previous, true
}

// marketReader is the read surface of rpc.MarketReader the snapshot
// loader depends on.
type marketReader interface {
	GetUnmintedColorIds(ctx context.Context) ([]market.TokenId, error)
	GetAllListedItems(ctx context.Context) ([]market.Listing, error)
	GetAllOffers(ctx context.Context) ([]market.Offer, error)
	GetHighestOffer(ctx context.Context, tokenId market.TokenId) (*market.Offer, error)
	GetOwnerOf(ctx context.Context, tokenId market.TokenId) (common.Address, error)
}

func (ms *MarketService) loadSnapshot(ctx context.Context, reader marketReader, headNumber uint64) (*MarketSnapshot, error) {
	totalTokens := utils.Config.Chain.Config.CollectionSize

	snapshot := &MarketSnapshot{
		HeadNumber: headNumber,
		Universe:   make([]market.TokenId, 0, totalTokens),
		Unminted:   map[market.TokenId]bool{},
		Listings:   map[market.TokenId]market.Listing{},
		Offers:     map[market.TokenId]market.Offer{},
		Owners:     map[market.TokenId]common.Address{},
	}

	for id := market.TokenId(1); id <= market.TokenId(totalTokens); id++ {
		snapshot.Universe = append(snapshot.Universe, id)
	}

	// the three top-level reads are independent, fan them out so the
	// refresh latency is bounded by the slowest call
	var (
		unmintedIds []market.TokenId
		listings    []market.Listing
		offers      []market.Offer
		offersErr   error
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		unmintedIds, err = reader.GetUnmintedColorIds(groupCtx)
		if err != nil {
			return fmt.Errorf("error loading unminted ids: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		listings, err = reader.GetAllListedItems(groupCtx)
		if err != nil {
			return fmt.Errorf("error loading listings: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		offers, offersErr = reader.GetAllOffers(groupCtx)
		if offersErr != nil && offersErr != rpc.ErrMethodNotAvailable {
			return fmt.Errorf("error loading offers: %w", offersErr)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, id := range unmintedIds {
		snapshot.Unminted[id] = true
	}
	for _, listing := range listings {
		snapshot.Listings[listing.TokenId] = listing
	}

	if offersErr == rpc.ErrMethodNotAvailable {
		// fall back to per token offer probing for contracts without
		// the aggregate getter, this needs the minted set so it runs
		// after the join
		err := ms.probeOffers(ctx, reader, snapshot)
		if err != nil {
			return nil, fmt.Errorf("error loading offers: %w", err)
		}
	} else {
		for _, offer := range offers {
			snapshot.Offers[offer.TokenId] = offer
		}
	}

	err := ms.loadOwners(ctx, reader, snapshot)
	if err != nil {
		return nil, fmt.Errorf("error loading owners: %w", err)
	}

	return snapshot, nil
}

func (ms *MarketService) probeOffers(ctx context.Context, reader marketReader, snapshot *MarketSnapshot) error {
	mintedIds := make([]market.TokenId, 0, len(snapshot.Universe))
	for _, id := range snapshot.Universe {
		if !snapshot.Unminted[id] {
			mintedIds = append(mintedIds, id)
		}
	}

	offerMutex := sync.Mutex{}
	return ms.runProbeBatch(ctx, mintedIds, func(ctx context.Context, id market.TokenId) error {
		offer, err := reader.GetHighestOffer(ctx, id)
		if err != nil {
			return err
		}
		if offer != nil {
			offerMutex.Lock()
			snapshot.Offers[id] = *offer
			offerMutex.Unlock()
		}
		return nil
	})
}

func (ms *MarketService) loadOwners(ctx context.Context, reader marketReader, snapshot *MarketSnapshot) error {
	mintedIds := make([]market.TokenId, 0, len(snapshot.Universe))
	for _, id := range snapshot.Universe {
		if !snapshot.Unminted[id] {
			mintedIds = append(mintedIds, id)
		}
	}

	ownerMutex := sync.Mutex{}
	return ms.runProbeBatch(ctx, mintedIds, func(ctx context.Context, id market.TokenId) error {
		owner, err := reader.GetOwnerOf(ctx, id)
		if err != nil {
			// tokens burned or reverted lookups are skipped, the view
			// model treats unknown owners conservatively
			return nil
		}

		ownerMutex.Lock()
		snapshot.Owners[id] = owner
		ownerMutex.Unlock()
		return nil
	})
}

// runProbeBatch fans the probe out over a bounded worker set. The
// concurrency limit protects public rpc endpoints from request storms.
func (ms *MarketService) runProbeBatch(ctx context.Context, ids []market.TokenId, probeFn func(ctx context.Context, id market.TokenId) error) error {
	probeLimit := utils.Config.ExecutionApi.OwnerProbeLimit
	if probeLimit == 0 {
		probeLimit = 20
	}

	idChan := make(chan market.TokenId)
	errChan := make(chan error, probeLimit)
	wg := sync.WaitGroup{}

	workerCount := int(probeLimit)
	if workerCount > len(ids) {
		workerCount = len(ids)
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				if ctx.Err() != nil {
					return
				}

				err := probeFn(ctx, id)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
			}
		}()
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		close(done)
	}()

feedLoop:
	for _, id := range ids {
		select {
		case idChan <- id:
		case <-ctx.Done():
			break feedLoop
		case <-done:
			// all workers bailed out early
			break feedLoop
		}
	}
	close(idChan)
	wg.Wait()

	select {
	case err := <-errChan:
		return err
	default:
	}

	return ctx.Err()
}

func (ms *MarketService) recordActivities(previous, current *MarketSnapshot) {
	if previous == nil {
		return
	}

	activities := diffSnapshots(previous, current)
	if len(activities) == 0 {
		return
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return db.InsertMarketActivities(activities, tx)
	})
	if err != nil {
		ms.logger.Warnf("error persisting market activities: %v", err)
	}
}

// diffSnapshots derives the activity events between two snapshots.
func diffSnapshots(previous, current *MarketSnapshot) []*dbtypes.MarketActivity {
	activities := []*dbtypes.MarketActivity{}
	firstSeen := uint64(current.Updated.Unix())

	addActivity := func(tokenId market.TokenId, kind string, actor common.Address, amount *big.Int) {
		activity := &dbtypes.MarketActivity{
			TokenId:   uint64(tokenId),
			Kind:      kind,
			FirstSeen: firstSeen,
		}
		if actor != (common.Address{}) {
			activity.Actor = actor.Bytes()
		}
		if amount != nil {
			activity.Amount = amount.String()
		}
		activities = append(activities, activity)
	}

	for _, id := range current.Universe {
		if previous.Unminted[id] && !current.Unminted[id] {
			addActivity(id, dbtypes.ActivityKindMint, current.Owners[id], nil)
		}

		prevListing, hadListing := previous.Listings[id]
		curListing, hasListing := current.Listings[id]
		prevActive := hadListing && prevListing.IsActive
		curActive := hasListing && curListing.IsActive

		if curActive && !prevActive {
			addActivity(id, dbtypes.ActivityKindListed, curListing.Seller, curListing.Price)
		} else if prevActive && !curActive {
			prevOwner, hadOwner := previous.Owners[id]
			curOwner, hasOwner := current.Owners[id]
			if hadOwner && hasOwner && prevOwner != curOwner {
				addActivity(id, dbtypes.ActivityKindSold, curOwner, prevListing.Price)
			} else {
				addActivity(id, dbtypes.ActivityKindUnlisted, prevListing.Seller, nil)
			}
		}

		prevOffer, hadOffer := previous.Offers[id]
		curOffer, hasOffer := current.Offers[id]

		if hasOffer && (!hadOffer || prevOffer.Bidder != curOffer.Bidder || comparableAmount(prevOffer.Amount) != comparableAmount(curOffer.Amount)) {
			addActivity(id, dbtypes.ActivityKindOfferPlaced, curOffer.Bidder, curOffer.Amount)
		} else if hadOffer && !hasOffer {
			curOwner, hasOwner := current.Owners[id]
			if hasOwner && curOwner == prevOffer.Bidder {
				addActivity(id, dbtypes.ActivityKindOfferAccepted, prevOffer.Bidder, prevOffer.Amount)
			} else {
				addActivity(id, dbtypes.ActivityKindOfferRemoved, prevOffer.Bidder, nil)
			}
		}
	}

	return activities
}

func comparableAmount(amount *big.Int) string {
	if amount == nil {
		return ""
	}

	return amount.String()
}
