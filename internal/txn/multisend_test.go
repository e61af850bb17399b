package txn

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	gnosis      = big.NewInt(100)
	gnosisUSDT  = common.HexToAddress("0x4ECaBa5870353805a9F068101A40E0f32ed605C6")
	curveGauge  = common.HexToAddress("0x7f90122BF0700F9E7e1F688fe926940E8839F353")
	approveData = "0x095ea7b30000000000000000000000007f90122bf0700f9e7e1f688fe926940e8839f353" +
		"00000000000000000000000000000000000000000000000000000000000003e8"
)

func addLiquidity() Tx {
	data := append([]byte{}, Sel("add_liquidity(uint256[3],uint256)")...)
	for _, v := range []int64{0, 0, 100, 0} {
		data = append(data, common.LeftPadBytes(big.NewInt(v).Bytes(), 32)...)
	}
	return NewTx(curveGauge, big.NewInt(0), data, Call)
}

func TestEncodeERC20Approve(t *testing.T) {
	assert.Equal(t, approveData, hexutil.Encode(EncodeERC20Approve(curveGauge, big.NewInt(1000))))
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(EncodeERC20Transfer(curveGauge, big.NewInt(1))[:4]))
}

func TestPackSingleIsIdentity(t *testing.T) {
	in := Approve(gnosisUSDT, curveGauge, big.NewInt(1000))
	out, err := Pack([]Transactable{in}, gnosis)
	require.NoError(t, err)
	assert.Equal(t, in.Target(), out.Target())
	assert.Equal(t, in.Value(), out.Value())
	assert.Equal(t, in.Data(), out.Data())
	assert.Equal(t, Call, out.Operation())

	// no multisend lookup for a single element
	_, err = Pack([]Transactable{in}, big.NewInt(999_999))
	assert.NoError(t, err)
}

func TestPackEmpty(t *testing.T) {
	_, err := Pack(nil, gnosis)
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestPackUnknownChain(t *testing.T) {
	txs := []Transactable{Approve(gnosisUSDT, curveGauge, big.NewInt(1)), addLiquidity()}
	_, err := Pack(txs, big.NewInt(999_999))
	assert.ErrorIs(t, err, ErrNoMultiSend)

	override := common.HexToAddress("0x40A2aCCbd92BCA938b02010E17A5b8929b49130D")
	out, err := Pack(txs, big.NewInt(999_999), WithMultiSend(override))
	require.NoError(t, err)
	assert.Equal(t, override, out.Target())
}

func TestPackBatchVector(t *testing.T) {
	want := "0x8d80ff0a00000000000000000000000000000000000000000000000000000000000000200000000000000000000000" +
		"000000000000000000000000000000000000000172004ecaba5870353805a9f068101a40e0f32ed605c6000000000000" +
		"000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000" +
		"00000000000000000044095ea7b30000000000000000000000007f90122bf0700f9e7e1f688fe926940e8839f3530000" +
		"0000000000000000000000000000000000000000000000000000000003e8007f90122bf0700f9e7e1f688fe926940e88" +
		"39f353000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000" +
		"000000000000000000000000000000000000844515cef300000000000000000000000000000000000000000000000000" +
		"000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000" +
		"000000000000000000000000000000000000000000006400000000000000000000000000000000000000000000000000" +
		"000000000000000000000000000000000000000000"

	out, err := Pack([]Transactable{Approve(gnosisUSDT, curveGauge, big.NewInt(1000)), addLiquidity()}, gnosis)
	require.NoError(t, err)
	assert.Equal(t, DelegateCall, out.Operation())
	assert.Equal(t, MultiSend130, out.Target())
	assert.Zero(t, out.Value().Sign())
	assert.Equal(t, want, hexutil.Encode(out.Data()))
}

func TestPackDecodeRoundTrip(t *testing.T) {
	in := []Transactable{
		Approve(gnosisUSDT, curveGauge, big.NewInt(1000)),
		NewTx(common.HexToAddress("0x1111111111111111111111111111111111111111"), big.NewInt(5e17), nil, Call),
		addLiquidity(),
		NewTx(common.HexToAddress("0x2222222222222222222222222222222222222222"), nil, []byte{0xde, 0xad}, DelegateCall),
	}
	out, err := Pack(in, big.NewInt(1))
	require.NoError(t, err)

	got, err := DecodeMultiSend(out.Data())
	require.NoError(t, err)
	require.Len(t, got, len(in))
	for i := range in {
		assert.Equal(t, in[i].Target(), got[i].Target(), "target %d", i)
		assert.Zero(t, in[i].Value().Cmp(got[i].Value()), "value %d", i)
		assert.Equal(t, len(in[i].Data()), len(got[i].Data()), "len %d", i)
		if len(in[i].Data()) > 0 {
			assert.Equal(t, in[i].Data(), got[i].Data(), "data %d", i)
		}
		assert.Equal(t, in[i].Operation(), got[i].Operation(), "op %d", i)
	}
}

func TestDecodeMultiSendErrors(t *testing.T) {
	_, err := DecodeMultiSend([]byte{1, 2})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodeMultiSendEntries(make([]byte, 40))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	entry := EncodeMultiSendEntries([]Transactable{NewTx(curveGauge, nil, []byte{1, 2, 3}, Call)})
	_, err = DecodeMultiSendEntries(entry[:len(entry)-1])
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "CALL", Call.String())
	assert.Equal(t, "DELEGATECALL", DelegateCall.String())
	assert.Equal(t, "Operation(7)", Operation(7).String())
}
