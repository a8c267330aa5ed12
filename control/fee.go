package control

import (
	"github.com/shopspring/decimal"
)

const (
	secondsPerMinute = 60
	minutesPerChunk  = 15
)

// ChunkRate 每 15 分钟的费用，即每小时 10 美元
var ChunkRate = decimal.RequireFromString("2.50")

// Fee 一次停车的计费结果
type Fee struct {
	DurationMin int64
	Chunks      int64
	ChargeUsd   decimal.Decimal
}

// ComputeFee 不足一分钟按一分钟算，不足 15 分钟按 15 分钟算
// 负的时长（时钟回拨）按 0 处理
func ComputeFee(elapsedSeconds int64) Fee {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	durationMin := ceilDiv(elapsedSeconds, secondsPerMinute)
	chunks := ceilDiv(durationMin, minutesPerChunk)
	return Fee{
		DurationMin: durationMin,
		Chunks:      chunks,
		ChargeUsd:   ChunkRate.Mul(decimal.NewFromInt(chunks)),
	}
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
