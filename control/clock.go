package control

import "time"

// Clock 入场和出场时间的唯一来源，测试里替换成固定时间
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock 系统墙上时钟
func RealClock() Clock { return realClock{} }
