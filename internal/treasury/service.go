package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

const receiptPollInterval = 2 * time.Second

var (
	// ErrInvalidAddress indicates a malformed destination address.
	ErrInvalidAddress = errors.New("invalid destination address")
	// ErrNonPositiveAmount indicates the payout amount resolves to zero or less wei.
	ErrNonPositiveAmount = errors.New("payout amount must be positive")
	// ErrChainUnreachable indicates the chain RPC endpoint could not be queried.
	ErrChainUnreachable = errors.New("chain rpc unreachable")
	// ErrSubmissionFailed indicates the transaction was rejected or reverted.
	ErrSubmissionFailed = errors.New("on-chain transfer failed")
	// ErrConfirmationTimeout indicates no receipt arrived within the ceiling.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// Backend is the slice of the chain RPC surface the treasury needs.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Service signs and submits value transfers from the custody account. All
// submissions go through a single queued path so nonce allocation never
// races.
type Service struct {
	backend        Backend
	account        *Account
	chainID        *big.Int
	gasLimit       uint64
	confirmCeiling time.Duration
	logger         *slog.Logger

	mu sync.Mutex
}

// NewService resolves the chain ID up front so a misconfigured RPC endpoint
// fails the process at startup instead of on the first payout.
func NewService(ctx context.Context, backend Backend, account *Account, gasLimit uint64, confirmCeiling time.Duration, logger *slog.Logger) (*Service, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve chain id: %v", ErrChainUnreachable, err)
	}

	return &Service{
		backend:        backend,
		account:        account,
		chainID:        chainID,
		gasLimit:       gasLimit,
		confirmCeiling: confirmCeiling,
		logger:         logger,
	}, nil
}

// Transfer sends the given amount of BNB to the destination address and
// blocks until the chain reports inclusion. It returns the transaction hash.
func (s *Service) Transfer(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(toAddress) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, toAddress)
	}
	to := common.HexToAddress(toAddress)

	valueWei := amount.Shift(18).BigInt()
	if valueWei.Sign() <= 0 {
		return "", fmt.Errorf("%w: %s BNB", ErrNonPositiveAmount, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.account.address)
	if err != nil {
		return "", fmt.Errorf("%w: fetch nonce: %v", ErrChainUnreachable, err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: fetch gas price: %v", ErrChainUnreachable, err)
	}

	tx := types.NewTransaction(nonce, to, valueWei, s.gasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.account.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	txHash := signed.Hash()
	s.logger.Info("transfer submitted",
		"tx_hash", txHash.Hex(), "to", to.Hex(), "nonce", nonce, "value_wei", valueWei.String())

	receipt, err := s.waitMined(ctx, txHash)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: transaction %s reverted", ErrSubmissionFailed, txHash.Hex())
	}

	return txHash.Hex(), nil
}

// waitMined polls for the transaction receipt until the confirmation
// ceiling. The signed transaction is already on the wire, so a caller-side
// cancellation must not abort the wait; only the ceiling bounds it.
func (s *Service) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.confirmCeiling)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w after %s: %s", ErrConfirmationTimeout, s.confirmCeiling, txHash.Hex())
		case <-ticker.C:
		}
	}
}
