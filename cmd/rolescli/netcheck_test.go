package main

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ligun0805/roles-keeper/internal/gas"
)

func TestPrintStrategyFees(t *testing.T) {
	var buf bytes.Buffer
	base, tip := gas.GweiToWei(10), gas.GweiToWei(2)
	s := gas.Normal
	printStrategyFees(&buf, s, gas.Fees{Tip: tip, FeeCap: s.MaxFee(base, tip), BaseFee: base}, 100_000)
	assert.Equal(t, "[normal] limit×1.4 fee×1.2: tip=2.00 gwei maxFee=14.00 gwei\n"+
		"    gas(100000→140000) max cost: 0.001960 ETH\n", buf.String())

	buf.Reset()
	printStrategyFees(&buf, s, gas.Fees{Tip: tip, FeeCap: s.MaxFee(base, tip), BaseFee: base}, 0)
	assert.NotContains(t, buf.String(), "cost")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	h := &gas.History{
		NextBaseFee: gas.GweiToWei(11),
		Rewards: map[int]gas.RewardStats{
			99: {Min: gas.GweiToWei(2), Avg: gas.GweiToWei(3), Max: gas.GweiToWei(9)},
			50: {Min: gas.GweiToWei(1), Avg: gas.GweiToWei(1), Max: gas.GweiToWei(2)},
		},
	}
	printHistory(&buf, 20, h, big.NewInt(10_000_000_000))
	out := buf.String()
	assert.Contains(t, out, "baseFee(next): 11.00 gwei")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("p50")), bytes.Index(buf.Bytes(), []byte("p99")))
	assert.Contains(t, out, "p99 min/avg/max: 2.00 / 3.00 / 9.00 gwei")
	assert.Contains(t, out, "peak fee (base + max tip): 19.00 gwei")
}
