package services

import (
	"github.com/ethereum/go-ethereum/common"
)

// NormalizeWalletAddress validates addr and returns its EIP-55 checksummed
// form. Returns ErrInvalidWallet for anything that is not a 20-byte hex
// address.
func NormalizeWalletAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidWallet
	}
	return common.HexToAddress(addr).Hex(), nil
}
