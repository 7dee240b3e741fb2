// 包 model：选区、议员、政党与选举的只读领域模型，以及统一的错误分类
package model

import (
	"fmt"
	"strings"
)

// Epoch：选区边界的划分周期（两次历史划分 + 一次待生效划分）
type Epoch string

const (
	Epoch2016   Epoch = "2016"
	Epoch2019   Epoch = "2019"
	EpochFuture Epoch = "future"
)

// Epochs 按时间顺序列出全部周期
var Epochs = []Epoch{Epoch2016, Epoch2019, EpochFuture}

// ParseEpoch：大小写不敏感解析周期名；"current" 视为 2019
func ParseEpoch(s string) (Epoch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2016":
		return Epoch2016, nil
	case "2019", "current":
		return Epoch2019, nil
	case "future":
		return EpochFuture, nil
	}
	return "", fmt.Errorf("unknown epoch %q", s)
}

// EpochSet：选区在各周期是否存在的标志位
type EpochSet uint8

const (
	In2016 EpochSet = 1 << iota
	In2019
	InFuture
)

func (e Epoch) flag() EpochSet {
	switch e {
	case Epoch2016:
		return In2016
	case Epoch2019:
		return In2019
	case EpochFuture:
		return InFuture
	}
	return 0
}

// Has：判断标志集合是否包含周期
func (s EpochSet) Has(e Epoch) bool {
	f := e.flag()
	return f != 0 && s&f != 0
}

// NewEpochSet 由三个布尔标志组装集合
func NewEpochSet(in2016, in2019, inFuture bool) EpochSet {
	var s EpochSet
	if in2016 {
		s |= In2016
	}
	if in2019 {
		s |= In2019
	}
	if inFuture {
		s |= InFuture
	}
	return s
}

// State：州与领地代码
type State string

const (
	ACT State = "ACT"
	NSW State = "NSW"
	NT  State = "NT"
	QLD State = "QLD"
	SA  State = "SA"
	TAS State = "TAS"
	VIC State = "VIC"
	WA  State = "WA"
)

// States 列出全部州与领地
var States = []State{ACT, NSW, NT, QLD, SA, TAS, VIC, WA}

// ParseState：大小写不敏感解析州代码
func ParseState(s string) (State, error) {
	up := State(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range States {
		if st == up {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown state %q", s)
}
