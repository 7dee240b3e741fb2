package model

import (
	"errors"
	"fmt"
	"strings"
)

// 文档注释：错误分类
// 背景：构建期错误（记录损坏、键冲突）致命；查询期的未找到、周期不匹配与批量校验错误可恢复，调用方用 errors.Is 区分。
var (
	ErrDivisionNotFound = errors.New("division not found")
	ErrElectionNotFound = errors.New("election not found")
	ErrPartyNotFound    = errors.New("party not found")
	ErrPostcodeNotFound = errors.New("postcode not found")
	ErrMapNotFound      = errors.New("map not found")
	ErrEpochMismatch    = errors.New("division has no map for this epoch")
	ErrNamesNotFound    = errors.New("divisions not found")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrCorruptEntry     = errors.New("corrupt archive entry")
	ErrMissingEntry     = errors.New("missing archive entry")
)

type DivisionNotFoundError struct {
	Name string
}

func (e *DivisionNotFoundError) Error() string {
	return fmt.Sprintf("could not find division %q", e.Name)
}

func (e *DivisionNotFoundError) Is(target error) bool { return target == ErrDivisionNotFound }

// NamesNotFoundError 汇总一次校验中全部无法识别的名称
type NamesNotFoundError struct {
	Names []string
}

func (e *NamesNotFoundError) Error() string {
	return "could not find divisions: " + strings.Join(e.Names, ", ")
}

func (e *NamesNotFoundError) Is(target error) bool { return target == ErrNamesNotFound }

type ElectionNotFoundError struct {
	Parliament int
}

func (e *ElectionNotFoundError) Error() string {
	return fmt.Sprintf("could not find election for parliament %d", e.Parliament)
}

func (e *ElectionNotFoundError) Is(target error) bool { return target == ErrElectionNotFound }

type EpochMismatchError struct {
	Division string
	Epoch    Epoch
}

func (e *EpochMismatchError) Error() string {
	return fmt.Sprintf("division %q does not have a %s map", e.Division, e.Epoch)
}

func (e *EpochMismatchError) Is(target error) bool { return target == ErrEpochMismatch }
