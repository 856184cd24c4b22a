package execution

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type PoolConfig struct {
	ChainId          uint64
	HeadPollInterval time.Duration
}

// Pool manages the configured execution endpoints plus any custom
// endpoint added at runtime. Ready clients are handed out round-robin.
type Pool struct {
	config        *PoolConfig
	ctx           context.Context
	logger        logrus.FieldLogger
	clientCounter uint16

	clientsMutex sync.RWMutex
	clients      []*Client

	schedulerMutex sync.Mutex
	rrLastIndex    uint16
}

func NewPool(ctx context.Context, config *PoolConfig, logger logrus.FieldLogger) *Pool {
	return &Pool{
		config:  config,
		ctx:     ctx,
		logger:  logger,
		clients: make([]*Client, 0),
	}
}

func (pool *Pool) AddEndpoint(endpoint *ClientConfig) *Client {
	pool.clientsMutex.Lock()
	defer pool.clientsMutex.Unlock()

	clientIdx := pool.clientCounter
	pool.clientCounter++
	client := pool.newPoolClient(clientIdx, endpoint)

	pool.clients = append(pool.clients, client)

	return client
}

func (pool *Pool) GetAllEndpoints() []*Client {
	pool.clientsMutex.RLock()
	defer pool.clientsMutex.RUnlock()

	clients := make([]*Client, len(pool.clients))
	copy(clients, pool.clients)

	return clients
}

func (pool *Pool) GetReadyEndpoint() *Client {
	readyClients := pool.GetReadyEndpoints()
	if len(readyClients) == 0 {
		return nil
	}

	return pool.runClientScheduler(readyClients)
}

func (pool *Pool) AwaitReadyEndpoint(ctx context.Context) *Client {
	for {
		client := pool.GetReadyEndpoint()
		if client != nil {
			return client
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(1 * time.Second):
		}
	}
}

func (pool *Pool) GetReadyEndpoints() []*Client {
	pool.clientsMutex.RLock()
	defer pool.clientsMutex.RUnlock()

	readyClients := make([]*Client, 0, len(pool.clients))
	for _, client := range pool.clients {
		if client.isOnline {
			readyClients = append(readyClients, client)
		}
	}

	return readyClients
}

func (pool *Pool) IsClientReady(client *Client) bool {
	if client == nil {
		return false
	}

	return client.isOnline
}

func (pool *Pool) checkClientChainId(chainId *big.Int) error {
	if pool.config.ChainId == 0 {
		return nil
	}

	if chainId.Uint64() != pool.config.ChainId {
		return fmt.Errorf("chain id mismatch: endpoint reports %v, expected %v", chainId, pool.config.ChainId)
	}

	return nil
}

func (pool *Pool) runClientScheduler(readyClients []*Client) *Client {
	pool.schedulerMutex.Lock()
	defer pool.schedulerMutex.Unlock()

	for _, client := range readyClients {
		if client.clientIdx > pool.rrLastIndex {
			pool.rrLastIndex = client.clientIdx
			return client
		}
	}

	firstReadyClient := readyClients[0]
	pool.rrLastIndex = firstReadyClient.clientIdx

	return firstReadyClient
}
