package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"event-reward-system/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TransferRequest describes one token transfer for the submitter. Amount is an
// ERC20 decimal string ("100.5"); TokenID is for ERC721/1155.
type TransferRequest struct {
	Kind         models.RewardType
	TokenAddress string
	ToAddress    string
	Amount       string
	TokenID      int64
}

// TransferSubmitter is the chain boundary consumed by the claim ledger.
// Ordinary chain failures (insufficient funds, RPC timeout, estimation
// failure) come back as error values, never panics.
type TransferSubmitter interface {
	SubmitTransfer(ctx context.Context, req TransferRequest) (string, error)
}

const (
	// Default gas limit when estimation fails, matching the behavior of the
	// node-less path: the transaction is still broadcast and may revert.
	defaultGasLimit = 100000

	submitTimeout = 30 * time.Second
)

// One ABI per standard: ERC721 and ERC1155 both name their method
// safeTransferFrom, so a combined ABI would mangle the selectors.
const erc20ABIJSON = `[
  {"name": "transfer", "type": "function", "inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}]}
]`

const erc721ABIJSON = `[
  {"name": "safeTransferFrom", "type": "function", "inputs": [{"name": "from", "type": "address"}, {"name": "to", "type": "address"}, {"name": "tokenId", "type": "uint256"}]}
]`

const erc1155ABIJSON = `[
  {"name": "safeTransferFrom", "type": "function", "inputs": [{"name": "from", "type": "address"}, {"name": "to", "type": "address"}, {"name": "id", "type": "uint256"}, {"name": "amount", "type": "uint256"}, {"name": "data", "type": "bytes"}]}
]`

var (
	erc20ABI       abi.ABI
	erc20ABIOnce   sync.Once
	erc20ABIErr    error
	erc721ABI      abi.ABI
	erc721ABIOnce  sync.Once
	erc721ABIErr   error
	erc1155ABI     abi.ABI
	erc1155ABIOnce sync.Once
	erc1155ABIErr  error
)

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func erc721ABIInstance() (abi.ABI, error) {
	erc721ABIOnce.Do(func() {
		erc721ABI, erc721ABIErr = abi.JSON(strings.NewReader(erc721ABIJSON))
	})
	return erc721ABI, erc721ABIErr
}

func erc1155ABIInstance() (abi.ABI, error) {
	erc1155ABIOnce.Do(func() {
		erc1155ABI, erc1155ABIErr = abi.JSON(strings.NewReader(erc1155ABIJSON))
	})
	return erc1155ABI, erc1155ABIErr
}

// BlockchainService signs and broadcasts reward transfers from the configured
// distribution wallet. Gas, nonce and fee selection live here and are opaque
// to the claim ledger.
type BlockchainService struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	sender     common.Address
	chainID    *big.Int
}

// NewBlockchainService dials the RPC endpoint from ETHEREUM_RPC_URL and loads
// the distribution key from PRIVATE_KEY.
func NewBlockchainService(ctx context.Context) (*BlockchainService, error) {
	rpcURL := os.Getenv("ETHEREUM_RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("ETHEREUM_RPC_URL environment variable not set")
	}
	keyHex := strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x")
	if keyHex == "" {
		return nil, fmt.Errorf("PRIVATE_KEY environment variable not set")
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain ID: %w", err)
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)
	log.Printf("✅ Blockchain service ready (sender: %s, chain: %s)", sender.Hex(), chainID)

	return &BlockchainService{
		client:     client,
		privateKey: key,
		sender:     sender,
		chainID:    chainID,
	}, nil
}

// SubmitTransfer encodes the transfer for the reward kind, signs it and
// broadcasts it. Returns the transaction hash on success. There is no
// finality guarantee at return time, only acceptance by the node.
func (s *BlockchainService) SubmitTransfer(ctx context.Context, req TransferRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	if !common.IsHexAddress(req.TokenAddress) {
		return "", fmt.Errorf("invalid token address: %s", req.TokenAddress)
	}
	if !common.IsHexAddress(req.ToAddress) {
		return "", fmt.Errorf("invalid recipient address: %s", req.ToAddress)
	}
	token := common.HexToAddress(req.TokenAddress)
	to := common.HexToAddress(req.ToAddress)

	var (
		data []byte
		err  error
	)
	switch req.Kind {
	case models.RewardTypeERC20:
		var amount *big.Int
		amount, err = ToWei(req.Amount)
		if err == nil {
			data, err = EncodeERC20Transfer(to, amount)
		}
	case models.RewardTypeERC721:
		data, err = EncodeERC721Transfer(s.sender, to, big.NewInt(req.TokenID))
	case models.RewardTypeERC1155:
		// ERC1155 rewards always move a single unit.
		data, err = EncodeERC1155Transfer(s.sender, to, big.NewInt(req.TokenID), big.NewInt(1))
	default:
		return "", fmt.Errorf("unknown reward type: %s", req.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode %s transfer: %w", req.Kind, err)
	}

	return s.sendTransaction(ctx, token, data)
}

func (s *BlockchainService) sendTransaction(ctx context.Context, contract common.Address, data []byte) (string, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.sender)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasLimit := uint64(defaultGasLimit)
	estimated, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.sender,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		log.Printf("Gas estimation failed, using default limit %d: %v", defaultGasLimit, err)
	} else {
		gasLimit = estimated
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("transaction failed: %w", err)
	}

	return signed.Hash().Hex(), nil
}

// Close releases the underlying RPC connection.
func (s *BlockchainService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// EncodeERC20Transfer packs transfer(address,uint256).
func EncodeERC20Transfer(to common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("transfer", to, amount)
}

// EncodeERC721Transfer packs safeTransferFrom(address,address,uint256).
func EncodeERC721Transfer(from, to common.Address, tokenID *big.Int) ([]byte, error) {
	parsed, err := erc721ABIInstance()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("safeTransferFrom", from, to, tokenID)
}

// EncodeERC1155Transfer packs
// safeTransferFrom(address,address,uint256,uint256,bytes) with empty data.
func EncodeERC1155Transfer(from, to common.Address, tokenID, amount *big.Int) ([]byte, error) {
	parsed, err := erc1155ABIInstance()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("safeTransferFrom", from, to, tokenID, amount, []byte{})
}

// ToWei converts an 18-decimal token amount ("100.5") to its smallest unit
// using integer math only. Amounts with more than 18 fractional digits are
// rejected rather than truncated.
func ToWei(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("amount has more than 18 decimal places: %s", amount)
	}
	frac = frac + strings.Repeat("0", 18-len(frac))

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	return wei, nil
}
