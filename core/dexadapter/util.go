package dexadapter

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// toBigInt normalises the handful of numeric Go types go-ethereum's abi
// package unpacks uintN/intN values into (native ints/uints for the
// 8/16/32/64-bit widths, *big.Int for every other width) into a single
// *big.Int.
func toBigInt(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		return n
	case uint8:
		return new(big.Int).SetUint64(uint64(n))
	case uint16:
		return new(big.Int).SetUint64(uint64(n))
	case uint32:
		return new(big.Int).SetUint64(uint64(n))
	case uint64:
		return new(big.Int).SetUint64(n)
	case int8:
		return big.NewInt(int64(n))
	case int16:
		return big.NewInt(int64(n))
	case int32:
		return big.NewInt(int64(n))
	case int64:
		return big.NewInt(n)
	case bool:
		if n {
			return big.NewInt(1)
		}
		return big.NewInt(0)
	default:
		panic(fmt.Sprintf("dexadapter: unexpected abi-decoded type %T", v))
	}
}

// poolAddressOf recovers the contract address embedded in a "<chainId>:<addr>"
// pool id, the inverse of venue.DexPoolID.
func poolAddressOf(id string) (common.Address, error) {
	parts := strings.SplitN(id, ":", 2)
	if len(parts) != 2 || !common.IsHexAddress(parts[1]) {
		return common.Address{}, fmt.Errorf("dexadapter: malformed pool id %q", id)
	}
	return common.HexToAddress(parts[1]), nil
}

// ratioFloat returns float64(num)/float64(den) for display-only use
// (execution price, impact) — never for authoritative swap math.
func ratioFloat(num, den *uint256.Int) float64 {
	if den.IsZero() {
		return 0
	}
	numF := new(big.Float).SetInt(num.ToBig())
	denF := new(big.Float).SetInt(den.ToBig())
	f, _ := new(big.Float).Quo(numF, denF).Float64()
	return f
}

// parseInt24 widens an abi-decoded int24 (surfaced as *big.Int by go-ethereum)
// into a Go int32.
func parseInt24(v interface{}) int32 {
	switch n := v.(type) {
	case *big.Int:
		return int32(n.Int64())
	case int32:
		return n
	default:
		i, err := strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
		if err != nil {
			return 0
		}
		return int32(i)
	}
}
