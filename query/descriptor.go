package query

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// 可识别的选项键
const (
	OptionConditions = "conditions"
	OptionFields     = "fields"
	OptionOrder      = "order"
	OptionLimit      = "limit"
	OptionPage       = "page"
)

// Options 面向调用方的查询选项，键集合固定为
// conditions/fields/order/limit/page，未知键在 Build 时报错
type Options map[string]any

// Clone 浅拷贝选项，conditions 子表单独拷贝
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	cloned := make(Options, len(o))
	for k, v := range o {
		cloned[k] = v
	}
	if conditions, ok := o[OptionConditions].(map[string]any); ok {
		conditionsCopy := make(map[string]any, len(conditions))
		for k, v := range conditions {
			conditionsCopy[k] = v
		}
		cloned[OptionConditions] = conditionsCopy
	}
	return cloned
}

// 排序方向
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// Order 单个排序项
type Order struct {
	Field     string
	Direction string
}

// Descriptor 不可变的查询描述，只能通过 Build 构造
type Descriptor struct {
	cond   Cond
	fields []string
	order  []Order
	limit  int
	page   int
}

// Build 校验选项并构造 Descriptor。
// 规则：只接受五个已知键；page 必须配合正的 limit 使用
func Build(options Options) (*Descriptor, error) {
	d := &Descriptor{}

	for key := range options {
		switch key {
		case OptionConditions, OptionFields, OptionOrder, OptionLimit, OptionPage:
		default:
			return nil, errors.Wrapf(ErrInvalidOption, "unknown option key %q", key)
		}
	}

	if v, ok := options[OptionConditions]; ok && v != nil {
		cond, err := buildCond(v)
		if err != nil {
			return nil, err
		}
		d.cond = cond
	}

	if v, ok := options[OptionFields]; ok && v != nil {
		fields, err := buildFields(v)
		if err != nil {
			return nil, err
		}
		d.fields = fields
	}

	if v, ok := options[OptionOrder]; ok && v != nil {
		order, err := buildOrder(v)
		if err != nil {
			return nil, err
		}
		d.order = order
	}

	if v, ok := options[OptionLimit]; ok {
		limit, ok := toInt(v)
		if !ok || limit < 0 {
			return nil, errors.Wrapf(ErrInvalidOption, "limit must be a non-negative integer, got %v", v)
		}
		d.limit = limit
	}

	if v, ok := options[OptionPage]; ok {
		page, ok := toInt(v)
		if !ok || page < 1 {
			return nil, errors.Wrapf(ErrInvalidOption, "page must be a positive integer, got %v", v)
		}
		if d.limit <= 0 {
			return nil, errors.Wrap(ErrInvalidOption, "page requires a positive limit")
		}
		d.page = page
	}

	return d, nil
}

// buildCond 把 conditions 选项转换成条件树。
// 支持两种形态：字段到约束的映射（AND 组合），或直接给出 Cond 节点
func buildCond(v any) (Cond, error) {
	switch conditions := v.(type) {
	case Cond:
		return conditions, nil
	case map[string]any:
		if len(conditions) == 0 {
			return nil, nil
		}
		// 字段按名称排序，保证生成的语句稳定
		fields := make([]string, 0, len(conditions))
		for field := range conditions {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		must := make([]Cond, 0, len(conditions))
		for _, field := range fields {
			must = append(must, fieldCond(field, conditions[field]))
		}
		if len(must) == 1 {
			return must[0], nil
		}
		return &BoolCond{Must: must}, nil
	}
	return nil, errors.Wrapf(ErrInvalidOption, "conditions must be a map or a Cond, got %T", v)
}

// fieldCond 单字段约束：标量按相等匹配，切片按集合匹配，Cond 节点原样使用
func fieldCond(field string, constraint any) Cond {
	switch value := constraint.(type) {
	case Cond:
		return value
	case []any:
		return &InCond{Field: field, Values: value}
	case []string:
		values := make([]interface{}, len(value))
		for i, s := range value {
			values[i] = s
		}
		return &InCond{Field: field, Values: values}
	case []int:
		values := make([]interface{}, len(value))
		for i, n := range value {
			values[i] = n
		}
		return &InCond{Field: field, Values: values}
	default:
		return &TermCond{Field: field, Value: constraint}
	}
}

func buildFields(v any) ([]string, error) {
	switch fields := v.(type) {
	case []string:
		return append([]string(nil), fields...), nil
	case []any:
		result := make([]string, 0, len(fields))
		for _, f := range fields {
			s, ok := f.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidOption, "field name must be a string, got %T", f)
			}
			result = append(result, s)
		}
		return result, nil
	}
	return nil, errors.Wrapf(ErrInvalidOption, "fields must be a string slice, got %T", v)
}

func buildOrder(v any) ([]Order, error) {
	switch order := v.(type) {
	case string:
		return []Order{{Field: order, Direction: Asc}}, nil
	case Order:
		normalized, err := normalizeOrder(order)
		if err != nil {
			return nil, err
		}
		return []Order{normalized}, nil
	case []Order:
		result := make([]Order, 0, len(order))
		for _, o := range order {
			normalized, err := normalizeOrder(o)
			if err != nil {
				return nil, err
			}
			result = append(result, normalized)
		}
		return result, nil
	case []string:
		result := make([]Order, 0, len(order))
		for _, field := range order {
			result = append(result, Order{Field: field, Direction: Asc})
		}
		return result, nil
	}
	return nil, errors.Wrapf(ErrInvalidOption, "order must be a string, an Order or an Order slice, got %T", v)
}

func normalizeOrder(o Order) (Order, error) {
	if o.Field == "" {
		return o, errors.Wrap(ErrInvalidOption, "order field must not be empty")
	}
	switch strings.ToUpper(o.Direction) {
	case "", Asc:
		o.Direction = Asc
	case Desc:
		o.Direction = Desc
	default:
		return o, errors.Wrapf(ErrInvalidOption, "order direction must be ASC or DESC, got %q", o.Direction)
	}
	return o, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case float32:
		if n == float32(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Cond 返回条件树，没有条件时为 nil
func (d *Descriptor) Cond() Cond {
	return d.cond
}

// Fields 返回投影字段，空表示所有字段
func (d *Descriptor) Fields() []string {
	return append([]string(nil), d.fields...)
}

// Order 返回排序项
func (d *Descriptor) Order() []Order {
	return append([]Order(nil), d.order...)
}

// Limit 返回行数上限，0 表示不限制
func (d *Descriptor) Limit() int {
	return d.limit
}

// Page 返回页号，0 表示未分页
func (d *Descriptor) Page() int {
	return d.page
}

// Offset 返回有效偏移量 (page-1)*limit
func (d *Descriptor) Offset() int {
	if d.page <= 1 {
		return 0
	}
	return (d.page - 1) * d.limit
}
