package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger().WithField("module", "rpc")

type ExecutionClient struct {
	name      string
	endpoint  string
	headers   map[string]string
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewExecutionClient is used to create a new execution client
func NewExecutionClient(name, endpoint string, headers map[string]string) *ExecutionClient {
	return &ExecutionClient{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
	}
}

func (ec *ExecutionClient) Initialize(ctx context.Context) error {
	if ec.ethClient != nil {
		return nil
	}

	rpcClient, err := rpc.DialContext(ctx, ec.endpoint)
	if err != nil {
		return err
	}

	for hKey, hVal := range ec.headers {
		rpcClient.SetHeader(hKey, hVal)
	}

	ec.rpcClient = rpcClient
	ec.ethClient = ethclient.NewClient(rpcClient)

	return nil
}

func (ec *ExecutionClient) GetName() string {
	return ec.name
}

func (ec *ExecutionClient) GetEndpoint() string {
	return ec.endpoint
}

func (ec *ExecutionClient) GetEthClient() *ethclient.Client {
	return ec.ethClient
}

func (ec *ExecutionClient) GetClientVersion(ctx context.Context) (string, error) {
	var result string
	err := ec.rpcClient.CallContext(ctx, &result, "web3_clientVersion")

	return result, err
}

func (ec *ExecutionClient) GetChainId(ctx context.Context) (*big.Int, error) {
	chainId, err := ec.ethClient.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	return chainId, nil
}

func (ec *ExecutionClient) GetLatestBlockHeader(ctx context.Context) (*ethtypes.Header, error) {
	block, err := ec.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}

	return block, nil
}

// CallContract executes a read-only contract call against the latest block.
func (ec *ExecutionClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return ec.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
}

