package chain

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, big.NewInt(1_500_000), ToBaseUnits(1.5, 6))
	assert.Equal(t, big.NewInt(1), ToBaseUnits(0.000001, 6))
	assert.Equal(t, big.NewInt(0), ToBaseUnits(0.0000001, 6), "sub-unit amounts truncate to zero")

	wei := ToBaseUnits(2, 18)
	want, ok := new(big.Int).SetString("2000000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, want, wei)
}

func TestFromBaseUnits(t *testing.T) {
	assert.InDelta(t, 1.5, FromBaseUnits(big.NewInt(1_500_000), 6), 1e-12)
	assert.Zero(t, FromBaseUnits(nil, 6))
}

func TestTransferCalldata(t *testing.T) {
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	data := transferCalldata(to, big.NewInt(1_000_000))

	require.Len(t, data, 4+32+32)
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]), "transfer(address,uint256) selector")
	assert.Equal(t, to.Bytes(), data[4+12:4+32], "recipient is left-padded to 32 bytes")
	assert.Equal(t, big.NewInt(1_000_000), new(big.Int).SetBytes(data[36:]))
}

func TestBalanceOfCalldata(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	data := balanceOfCalldata(owner)

	require.Len(t, data, 4+32)
	assert.Equal(t, "70a08231", hex.EncodeToString(data[:4]), "balanceOf(address) selector")
	assert.Equal(t, owner.Bytes(), data[4+12:])
}
