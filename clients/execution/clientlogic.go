package execution

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// runClientLoop keeps one endpoint alive: initialize, verify the chain
// id, then poll the head until the connection fails, with growing
// backoff between reconnect attempts.
func (client *Client) runClientLoop() {
	defer func() {
		if err := recover(); err != nil {
			client.logger.Errorf("uncaught panic in clients.execution.Client.runClientLoop subroutine: %v, stack: %v", err, string(debug.Stack()))
			time.Sleep(10 * time.Second)

			go client.runClientLoop()
		}
	}()

	for {
		err := client.initClient()
		if err == nil {
			err = client.watchClientHead()
		}

		if client.clientCtx.Err() != nil {
			return
		}

		client.isOnline = false
		client.lastError = err
		client.lastEvent = time.Now()
		client.retryCounter++

		waitTime := 10 * time.Second
		if client.retryCounter > 10 {
			waitTime = 300 * time.Second
		} else if client.retryCounter > 5 {
			waitTime = 60 * time.Second
		}

		client.logger.Warnf("execution client error: %v, retrying in %v...", err, waitTime)
		time.Sleep(waitTime)
	}
}

func (client *Client) initClient() error {
	ctx, cancel := context.WithTimeout(client.clientCtx, 60*time.Second)
	defer cancel()

	err := client.rpcClient.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialization of execution client failed: %w", err)
	}

	nodeVersion, err := client.rpcClient.GetClientVersion(ctx)
	if err != nil {
		return fmt.Errorf("error while fetching node version: %v", err)
	}
	client.versionStr = nodeVersion

	// an endpoint on the wrong chain must never become ready, reading
	// contract state from another network would corrupt the snapshot
	chainId, err := client.rpcClient.GetChainId(ctx)
	if err != nil {
		return fmt.Errorf("error while fetching chain id: %v", err)
	}
	client.chainId = chainId

	return client.pool.checkClientChainId(chainId)
}

func (client *Client) watchClientHead() error {
	err := client.pollClientHead()
	if err != nil {
		return err
	}

	client.lastEvent = time.Now()
	client.isOnline = true
	client.retryCounter = 0

	pollInterval := client.pool.config.HeadPollInterval
	if pollInterval == 0 {
		pollInterval = 12 * time.Second
	}

	for {
		select {
		case <-client.clientCtx.Done():
			return nil
		case <-time.After(pollInterval):
			err := client.pollClientHead()
			if err != nil {
				client.isOnline = false
				return err
			}

			client.lastEvent = time.Now()
		}
	}
}

func (client *Client) pollClientHead() error {
	ctx, cancel := context.WithTimeout(client.clientCtx, 10*time.Second)
	defer cancel()

	latestHeader, err := client.rpcClient.GetLatestBlockHeader(ctx)
	if err != nil {
		return fmt.Errorf("could not get latest header: %v", err)
	}
	if latestHeader == nil {
		return fmt.Errorf("could not find latest header")
	}

	client.headMutex.Lock()
	defer client.headMutex.Unlock()

	client.headNumber = latestHeader.Number.Uint64()
	client.headHash = latestHeader.Hash()

	return nil
}
