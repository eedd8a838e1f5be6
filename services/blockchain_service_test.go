package services

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestToWei(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1", want: "1000000000000000000"},
		{in: "100", want: "100000000000000000000"},
		{in: "0.5", want: "500000000000000000"},
		{in: "100.25", want: "100250000000000000000"},
		{in: "0.000000000000000001", want: "1"},
		{in: "0", want: "0"},
		{in: ".5", want: "500000000000000000"},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.0000000000000000001", wantErr: true}, // 19 decimal places
	}

	for _, tc := range cases {
		got, err := ToWei(tc.in)
		if tc.wantErr {
			require.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, got.String(), "input %q", tc.in)
	}
}

func TestEncodeERC20Transfer(t *testing.T) {
	to := common.HexToAddress(testWallet)
	amount, err := ToWei("100")
	require.NoError(t, err)

	data, err := EncodeERC20Transfer(to, amount)
	require.NoError(t, err)

	// transfer(address,uint256) selector.
	require.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	require.Len(t, data, 4+32+32)
	require.Equal(t, to.Bytes(), data[4+12:4+32])
	require.Equal(t, amount, new(big.Int).SetBytes(data[4+32:]))
}

func TestEncodeERC721Transfer(t *testing.T) {
	from := common.HexToAddress(otherWallet)
	to := common.HexToAddress(testWallet)

	data, err := EncodeERC721Transfer(from, to, big.NewInt(5))
	require.NoError(t, err)

	// safeTransferFrom(address,address,uint256) selector.
	require.Equal(t, "42842e0e", hex.EncodeToString(data[:4]))
	require.Len(t, data, 4+32*3)
	require.Equal(t, int64(5), new(big.Int).SetBytes(data[4+64:4+96]).Int64())
}

func TestEncodeERC1155Transfer(t *testing.T) {
	from := common.HexToAddress(otherWallet)
	to := common.HexToAddress(testWallet)

	data, err := EncodeERC1155Transfer(from, to, big.NewInt(7), big.NewInt(1))
	require.NoError(t, err)

	// safeTransferFrom(address,address,uint256,uint256,bytes) selector.
	require.Equal(t, "f242432a", hex.EncodeToString(data[:4]))
	// id and amount words.
	require.Equal(t, int64(7), new(big.Int).SetBytes(data[4+64:4+96]).Int64())
	require.Equal(t, int64(1), new(big.Int).SetBytes(data[4+96:4+128]).Int64())
}
