package batcher

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

func loadPrivateKey() (*ecdsa.PrivateKey, error) {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	pk := os.Getenv("PRIVATE_KEY")
	if pk == "" {
		return nil, errors.New("PRIVATE_KEY not found in environment or .env file")
	}

	return crypto.HexToECDSA(pk)
}

func dialClient() (*ethclient.Client, *big.Int, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return nil, nil, errors.New("RPC_URL not found in environment or .env file")
	}

	chainIDRaw := os.Getenv("CHAIN_ID")
	if chainIDRaw == "" {
		return nil, nil, errors.New("CHAIN_ID not found in environment or .env file")
	}
	chainID, ok := new(big.Int).SetString(chainIDRaw, 10)
	if !ok {
		return nil, nil, fmt.Errorf("invalid CHAIN_ID: %q", chainIDRaw)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, nil, err
	}

	return client, chainID, nil
}

func loadTransactor(chainID *big.Int) (*bind.TransactOpts, error) {
	pk, err := loadPrivateKey()
	if err != nil {
		return nil, err
	}

	return bind.NewKeyedTransactorWithChainID(pk, chainID)
}

func loadItems(path string) ([]types.OperationItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var items []types.OperationItem
	if err := json.NewDecoder(f).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return items, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// loggingObserver reports lifecycle transitions on the configured logger.
func loggingObserver(log sdk.Logger) batcher.Observer {
	return batcher.ObserverFuncs{
		OnItemStarted: func(batchID string, index int) {
			log.Infof("batch %s: item %d submitted", batchID, index)
		},
		OnItemSucceeded: func(batchID string, index int, txHash string) {
			log.Infof("batch %s: item %d succeeded (%s)", batchID, index, txHash)
		},
		OnItemFailed: func(batchID string, index int, err error) {
			log.Warnf("batch %s: item %d failed: %v", batchID, index, err)
		},
		OnBatchCompleted: func(batchID string, report *batcher.BatchReport) {
			log.Infof("batch %s: completed (%d succeeded, %d failed, %d skipped)",
				batchID, len(report.Succeeded), len(report.Failed), len(report.Skipped))
		},
		OnBatchFailed: func(batchID string, err error) {
			log.Warnf("batch %s: failed: %v", batchID, err)
		},
	}
}
