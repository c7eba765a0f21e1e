// Package wallet signs identity challenges and pays signing fees with an
// Ethereum key.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

const (
	serviceName = "eth-rpc"

	// ChallengeTitle is the first line of every identity challenge.
	ChallengeTitle = "VCar identity confirmation"

	transferGas = 21000

	defaultReceiptInterval = 2 * time.Second
)

// Reason codes reported in PaymentResult.
const (
	ReasonNonceUnavailable    = "NONCE_UNAVAILABLE"
	ReasonGasPriceUnavailable = "GAS_PRICE_UNAVAILABLE"
	ReasonSignFailed          = "SIGN_FAILED"
	ReasonSendFailed          = "SEND_FAILED"
	ReasonReceiptFailed       = "RECEIPT_FAILED"
	ReasonReceiptTimeout      = "RECEIPT_TIMEOUT"
	ReasonReverted            = "REVERTED"
)

var weiPerEther = decimal.New(1, 18)

// ChainClient is the subset of the JSON-RPC client the wallet needs.
// *ethclient.Client satisfies it.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// PaymentResult is the outcome of a fee transfer.
type PaymentResult struct {
	Success    bool
	TxHash     string
	ReasonCode string
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("%w: no rpc url configured", domain.ErrWalletUnavailable)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrWalletUnavailable, err)
	}
	return client, nil
}

// LoadKey decrypts a keystore JSON file.
func LoadKey(path, password string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no keystore configured", domain.ErrWalletUnavailable)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read keystore: %v", domain.ErrWalletUnavailable, err)
	}
	key, err := keystore.DecryptKey(raw, password)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unlock keystore: %v", domain.ErrWalletUnavailable, err)
	}
	return key.PrivateKey, nil
}

type Wallet struct {
	key   *ecdsa.PrivateKey
	chain ChainClient

	receiptInterval time.Duration
	receiptTimeout  time.Duration

	mu      sync.Mutex
	chainID *big.Int
}

// New creates a wallet. Either argument may be nil; operations needing the
// missing part fail with domain.ErrWalletUnavailable.
func New(key *ecdsa.PrivateKey, chain ChainClient) *Wallet {
	return &Wallet{
		key:             key,
		chain:           chain,
		receiptInterval: defaultReceiptInterval,
	}
}

// SetReceiptPolling overrides how SendPayment waits for the transfer receipt.
// A timeout <= 0 waits until the caller's context ends.
func (w *Wallet) SetReceiptPolling(interval, timeout time.Duration) {
	w.receiptInterval = interval
	w.receiptTimeout = timeout
}

// Address returns the wallet account, or the zero address without a key.
func (w *Wallet) Address() common.Address {
	if w.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

// Connect checks that the key is unlocked and the chain is reachable and
// returns the active account.
func (w *Wallet) Connect(ctx context.Context) (common.Address, error) {
	logger.EnterMethod("Wallet.Connect")
	if w.key == nil {
		logger.ExitMethodWithError("Wallet.Connect", domain.ErrWalletUnavailable)
		return common.Address{}, fmt.Errorf("%w: no signing key", domain.ErrWalletUnavailable)
	}
	if _, err := w.ensureChainID(ctx); err != nil {
		logger.ExitMethodWithError("Wallet.Connect", err)
		return common.Address{}, err
	}
	addr := w.Address()
	logger.ExitMethod("Wallet.Connect", "account", addr.Hex())
	return addr, nil
}

func (w *Wallet) ensureChainID(ctx context.Context) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.chainID != nil {
		return w.chainID, nil
	}
	if w.chain == nil {
		return nil, fmt.Errorf("%w: no chain endpoint", domain.ErrWalletUnavailable)
	}
	logger.ExternalServiceCall(serviceName, "ChainID")
	id, err := w.chain.ChainID(ctx)
	logger.ExternalServiceResult(serviceName, "ChainID", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrWalletUnavailable, err)
	}
	w.chainID = id
	return id, nil
}

// Challenge builds the identity challenge text for a user.
func Challenge(userID, nonce string) string {
	return fmt.Sprintf("%s\nuser: %s\nnonce: %s", ChallengeTitle, userID, nonce)
}

// SignMessage signs a fresh identity challenge for userID using personal
// message hashing.
func (w *Wallet) SignMessage(ctx context.Context, userID string) (*domain.WalletSignature, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureRejected, err)
	}
	if w.key == nil {
		return nil, fmt.Errorf("%w: no signing key", domain.ErrWalletUnavailable)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no user to confirm", domain.ErrSignatureRejected)
	}

	msg := Challenge(userID, uuid.NewString())
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), w.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureRejected, err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return &domain.WalletSignature{
		Account:   w.Address().Hex(),
		Message:   msg,
		Signature: hexutil.Encode(sig),
	}, nil
}

// GetBalance returns the balance of addr in native units.
func (w *Wallet) GetBalance(ctx context.Context, addr common.Address) (decimal.Decimal, error) {
	if w.chain == nil {
		return decimal.Zero, fmt.Errorf("%w: no chain endpoint", domain.ErrBalanceQuery)
	}
	logger.ExternalServiceCall(serviceName, "BalanceAt", "address", addr.Hex())
	wei, err := w.chain.BalanceAt(ctx, addr, nil)
	logger.ExternalServiceResult(serviceName, "BalanceAt", err, "address", addr.Hex())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrBalanceQuery, err)
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

// SendPayment transfers amount native units to the given address and waits
// for the receipt. Chain failures are reported through the result; the error
// is reserved for a wallet that cannot pay at all.
func (w *Wallet) SendPayment(ctx context.Context, to common.Address, amount decimal.Decimal) (PaymentResult, error) {
	logger.EnterMethod("Wallet.SendPayment", "to", to.Hex(), "amount", amount.String())
	if w.key == nil {
		return PaymentResult{}, fmt.Errorf("%w: no signing key", domain.ErrWalletUnavailable)
	}
	if !amount.IsPositive() {
		return PaymentResult{}, fmt.Errorf("%w: amount must be positive", domain.ErrPaymentFailed)
	}
	chainID, err := w.ensureChainID(ctx)
	if err != nil {
		return PaymentResult{}, err
	}

	from := w.Address()
	result := w.transfer(ctx, chainID, from, to, amount.Mul(weiPerEther).BigInt())
	logger.ExitMethod("Wallet.SendPayment", "success", result.Success, "tx_hash", result.TxHash, "reason", result.ReasonCode)
	return result, nil
}

func (w *Wallet) transfer(ctx context.Context, chainID *big.Int, from, to common.Address, wei *big.Int) PaymentResult {
	logger.ExternalServiceCall(serviceName, "PendingNonceAt", "address", from.Hex())
	nonce, err := w.chain.PendingNonceAt(ctx, from)
	logger.ExternalServiceResult(serviceName, "PendingNonceAt", err)
	if err != nil {
		return PaymentResult{ReasonCode: ReasonNonceUnavailable}
	}

	logger.ExternalServiceCall(serviceName, "SuggestGasPrice")
	gasPrice, err := w.chain.SuggestGasPrice(ctx)
	logger.ExternalServiceResult(serviceName, "SuggestGasPrice", err)
	if err != nil {
		return PaymentResult{ReasonCode: ReasonGasPriceUnavailable}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    wei,
		Gas:      transferGas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return PaymentResult{ReasonCode: ReasonSignFailed}
	}
	hash := signed.Hash()

	logger.ExternalServiceCall(serviceName, "SendTransaction", "tx_hash", hash.Hex())
	err = w.chain.SendTransaction(ctx, signed)
	logger.ExternalServiceResult(serviceName, "SendTransaction", err, "tx_hash", hash.Hex())
	if err != nil {
		return PaymentResult{TxHash: hash.Hex(), ReasonCode: ReasonSendFailed}
	}

	receipt, reason := w.waitReceipt(ctx, hash)
	if receipt == nil {
		return PaymentResult{TxHash: hash.Hex(), ReasonCode: reason}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return PaymentResult{TxHash: hash.Hex(), ReasonCode: ReasonReverted}
	}
	return PaymentResult{Success: true, TxHash: hash.Hex()}
}

func (w *Wallet) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, string) {
	if w.receiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.receiptTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(w.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.chain.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, ""
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, ReasonReceiptTimeout
			}
			logger.Warn("Receipt lookup failed", "tx_hash", hash.Hex(), "error", err)
			return nil, ReasonReceiptFailed
		}
		select {
		case <-ctx.Done():
			return nil, ReasonReceiptTimeout
		case <-ticker.C:
		}
	}
}

// VerifySignature recovers the signer of sig and checks it against the
// claimed account when one is set.
func VerifySignature(sig *domain.WalletSignature) (common.Address, error) {
	raw, err := hexutil.Decode(sig.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: malformed signature: %v", domain.ErrSignatureRejected, err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes", domain.ErrSignatureRejected, crypto.SignatureLength)
	}
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(sig.Message)), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", domain.ErrSignatureRejected, err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if sig.Account != "" && common.HexToAddress(sig.Account) != signer {
		return signer, fmt.Errorf("%w: signed by %s, not %s", domain.ErrSignatureRejected, signer.Hex(), sig.Account)
	}
	return signer, nil
}
