package watcher

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/synnergy-network/marketengine/core/venue"
)

func packOrFatal(t *testing.T, args interface{ Pack(...interface{}) ([]byte, error) }, vals ...interface{}) []byte {
	t.Helper()
	data, err := args.Pack(vals...)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return data
}

func TestDecodeLogSync(t *testing.T) {
	data := packOrFatal(t, syncArgs, big.NewInt(1000), big.NewInt(2000))
	log := types.Log{
		Address:     common.HexToAddress("0x0a"),
		Topics:      []common.Hash{venue.TopicSync},
		Data:        data,
		BlockNumber: 10,
		TxIndex:     1,
		Index:       2,
	}
	event, ok, err := decodeLog(1, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a monitored topic")
	}
	if event.Kind != venue.EventSync {
		t.Fatalf("expected EventSync, got %v", event.Kind)
	}
	if event.Sync.Reserve0.Uint64() != 1000 || event.Sync.Reserve1.Uint64() != 2000 {
		t.Fatalf("unexpected reserves: %+v", event.Sync)
	}
	if event.Meta.BlockNumber != 10 || event.Meta.TransactionIndex != 1 || event.Meta.LogIndex != 2 {
		t.Fatalf("unexpected metadata: %+v", event.Meta)
	}
}

func TestDecodeLogSyncMalformedData(t *testing.T) {
	log := types.Log{
		Topics: []common.Hash{venue.TopicSync},
		Data:   []byte{1, 2, 3},
	}
	_, ok, err := decodeLog(1, log)
	if err == nil {
		t.Fatal("expected a decode error for truncated data")
	}
	if ok {
		t.Fatal("expected ok=false alongside the error")
	}
}

func TestDecodeLogV3Swap(t *testing.T) {
	data := packOrFatal(t, v3SwapArgs, big.NewInt(-500), big.NewInt(300), new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(123456), big.NewInt(-100))
	log := types.Log{Topics: []common.Hash{venue.TopicV3Swap}, Data: data}
	event, ok, err := decodeLog(1, log)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if event.Kind != venue.EventV3Swap {
		t.Fatalf("expected EventV3Swap, got %v", event.Kind)
	}
	if event.Swap.Tick != -100 {
		t.Fatalf("expected tick -100, got %d", event.Swap.Tick)
	}
	if event.Swap.Liquidity.Uint64() != 123456 {
		t.Fatalf("expected liquidity 123456, got %v", event.Swap.Liquidity)
	}
}

func TestDecodeLogV3MintUsesIndexedTickBounds(t *testing.T) {
	data := packOrFatal(t, v3MintArgs, big.NewInt(5000), big.NewInt(10), big.NewInt(20))
	topics := []common.Hash{
		venue.TopicV3Mint,
		common.HexToHash("0x01"),
		signedIntToHash(-120),
		signedIntToHash(60),
	}
	log := types.Log{Topics: topics, Data: data}
	event, ok, err := decodeLog(1, log)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if event.Mint.TickLower != -120 || event.Mint.TickUpper != 60 {
		t.Fatalf("expected tick bounds -120/60, got %d/%d", event.Mint.TickLower, event.Mint.TickUpper)
	}
	if event.Mint.Amount.Uint64() != 5000 {
		t.Fatalf("expected amount 5000, got %v", event.Mint.Amount)
	}
}

func TestDecodeLogV3BurnUsesIndexedTickBounds(t *testing.T) {
	data := packOrFatal(t, v3BurnArgs, big.NewInt(777), big.NewInt(1), big.NewInt(2))
	topics := []common.Hash{
		venue.TopicV3Burn,
		common.HexToHash("0x02"),
		signedIntToHash(-60),
		signedIntToHash(180),
	}
	log := types.Log{Topics: topics, Data: data}
	event, ok, err := decodeLog(1, log)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if event.Kind != venue.EventV3Burn {
		t.Fatalf("expected EventV3Burn, got %v", event.Kind)
	}
	if event.Burn.TickLower != -60 || event.Burn.TickUpper != 180 {
		t.Fatalf("expected tick bounds -60/180, got %d/%d", event.Burn.TickLower, event.Burn.TickUpper)
	}
}

func TestDecodeLogV4SwapCarriesPoolKeyNotAddress(t *testing.T) {
	data := packOrFatal(t, v4SwapArgs, big.NewInt(-1), big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(5), big.NewInt(3000))
	key := common.HexToHash("0xabc123")
	log := types.Log{Topics: []common.Hash{venue.TopicV4Swap, key}, Data: data}
	event, ok, err := decodeLog(1, log)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if event.PoolKey == nil || *event.PoolKey != [32]byte(key) {
		t.Fatalf("expected pool key %v, got %v", key, event.PoolKey)
	}
	if event.PoolAddress != (common.Address{}) {
		t.Fatal("v4 events must not carry a pool address")
	}
}

func TestDecodeLogV4ModifyLiquidityIgnoredForState(t *testing.T) {
	data := packOrFatal(t, v4ModifyArgs, big.NewInt(-1000), big.NewInt(0))
	topics := []common.Hash{
		venue.TopicV4ModifyLiquidity,
		common.HexToHash("0x03"),
		signedIntToHash(-60),
		signedIntToHash(60),
	}
	log := types.Log{Topics: topics, Data: data}
	event, ok, err := decodeLog(1, log)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if event.AppliesToState() {
		t.Fatal("ModifyLiquidity must never apply to pool state")
	}
	if event.ModifyLiquidity.LiquidityDelta.Sign() >= 0 {
		t.Fatalf("expected the negative liquidity delta preserved, got %v", event.ModifyLiquidity.LiquidityDelta)
	}
}

func TestDecodeLogUnmonitoredTopicIsIgnored(t *testing.T) {
	log := types.Log{Topics: []common.Hash{common.HexToHash("0xdeadbeef")}}
	_, ok, err := decodeLog(1, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for an unmonitored topic")
	}
}

func TestDecodeLogEmptyTopicsIsIgnored(t *testing.T) {
	_, ok, err := decodeLog(1, types.Log{})
	if err != nil || ok {
		t.Fatalf("expected (false, nil) for a log with no topics, got ok=%v err=%v", ok, err)
	}
}

func TestTickBoundsFromTopicsShortTopicsReturnsZero(t *testing.T) {
	lower, upper := tickBoundsFromTopics([]common.Hash{venue.TopicV3Mint})
	if lower != 0 || upper != 0 {
		t.Fatalf("expected zero bounds for too few topics, got %d/%d", lower, upper)
	}
}

func TestHashToSignedIntPositive(t *testing.T) {
	h := common.BigToHash(big.NewInt(42))
	if got := hashToSignedInt(h); got.Int64() != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestHashToSignedIntNegativeTwosComplement(t *testing.T) {
	h := signedIntToHash(-42)
	if got := hashToSignedInt(h); got.Int64() != -42 {
		t.Fatalf("expected -42, got %v", got)
	}
}

// signedIntToHash encodes v as a 32-byte two's-complement word, the inverse
// of hashToSignedInt, for building synthetic indexed topic values in tests.
func signedIntToHash(v int64) common.Hash {
	n := big.NewInt(v)
	if n.Sign() < 0 {
		modulus := new(big.Int).Lsh(big.NewInt(1), 256)
		n = new(big.Int).Add(n, modulus)
	}
	return common.BigToHash(n)
}
