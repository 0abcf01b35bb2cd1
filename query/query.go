package query

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidOption 非法的查询选项（未知键、类型错误、page 缺少 limit 等）
var ErrInvalidOption = errors.New("invalid option")

// CondType 条件类型
type CondType string

const (
	CondTypeTerm  CondType = "term"
	CondTypeIn    CondType = "in"
	CondTypeRange CondType = "range"
	CondTypeBool  CondType = "bool"
)

// Cond 条件节点接口
type Cond interface {
	Type() CondType
	// 后端适配器接口
	ToSQL() (string, []interface{}, error)
	ToMongo() (map[string]interface{}, error)
	// 进程内求值，供内存后端与测试使用
	Match(row map[string]any) bool
}

// compareValues 比较两个标量值，返回 -1/0/1；无法比较时 ok 为 false。
// 数据库驱动返回的数字类型不统一（int/int64/float64），统一转成 float64 比较
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// equalValues 判断两个标量值是否相等
func equalValues(a, b any) bool {
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}
