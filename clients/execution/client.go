package execution

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/rpc"
)

type ClientStatus uint8

var (
	ClientStatusOnline  ClientStatus = 1
	ClientStatusOffline ClientStatus = 2
)

type ClientConfig struct {
	URL      string
	Name     string
	Priority int
	Headers  map[string]string
}

type Client struct {
	pool            *Pool
	clientIdx       uint16
	endpointConfig  *ClientConfig
	clientCtx       context.Context
	clientCtxCancel context.CancelFunc
	rpcClient       *rpc.ExecutionClient
	logger          *logrus.Entry
	isOnline        bool
	versionStr      string
	chainId         *big.Int
	lastEvent       time.Time
	retryCounter    uint64
	lastError       error
	headMutex       sync.RWMutex
	headHash        common.Hash
	headNumber      uint64
}

func (pool *Pool) newPoolClient(clientIdx uint16, endpoint *ClientConfig) *Client {
	rpcClient := rpc.NewExecutionClient(endpoint.Name, endpoint.URL, endpoint.Headers)

	client := Client{
		pool:           pool,
		clientIdx:      clientIdx,
		endpointConfig: endpoint,
		rpcClient:      rpcClient,
		logger:         pool.logger.WithField("client", endpoint.Name),
	}
	client.resetContext()

	go client.runClientLoop()

	return &client
}

func (client *Client) resetContext() {
	if client.clientCtxCancel != nil {
		client.clientCtxCancel()
	}

	client.clientCtx, client.clientCtxCancel = context.WithCancel(client.pool.ctx)
}

func (client *Client) GetIndex() uint16 {
	return client.clientIdx
}

func (client *Client) GetName() string {
	return client.endpointConfig.Name
}

func (client *Client) GetVersion() string {
	return client.versionStr
}

func (client *Client) GetChainId() *big.Int {
	return client.chainId
}

func (client *Client) GetEndpointConfig() *ClientConfig {
	return client.endpointConfig
}

func (client *Client) GetLastHead() (uint64, common.Hash) {
	client.headMutex.RLock()
	defer client.headMutex.RUnlock()

	return client.headNumber, client.headHash
}

func (client *Client) GetLastError() error {
	return client.lastError
}

func (client *Client) GetLastEventTime() time.Time {
	return client.lastEvent
}

func (client *Client) GetRPCClient() *rpc.ExecutionClient {
	return client.rpcClient
}

func (client *Client) GetStatus() ClientStatus {
	if client.isOnline {
		return ClientStatusOnline
	}

	return ClientStatusOffline
}
