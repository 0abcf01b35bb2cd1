package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// RangeCond 范围条件，Gt/Gte/Lt/Lte 为 nil 表示不限制该边界
type RangeCond struct {
	Field string      `json:"field"`
	Gt    interface{} `json:"gt,omitempty"`
	Gte   interface{} `json:"gte,omitempty"`
	Lt    interface{} `json:"lt,omitempty"`
	Lte   interface{} `json:"lte,omitempty"`
}

func (c *RangeCond) Type() CondType {
	return CondTypeRange
}

func (c *RangeCond) ToSQL() (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	if c.Gt != nil {
		conditions = append(conditions, fmt.Sprintf("%s > ?", c.Field))
		args = append(args, c.Gt)
	}
	if c.Gte != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= ?", c.Field))
		args = append(args, c.Gte)
	}
	if c.Lt != nil {
		conditions = append(conditions, fmt.Sprintf("%s < ?", c.Field))
		args = append(args, c.Lt)
	}
	if c.Lte != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= ?", c.Field))
		args = append(args, c.Lte)
	}

	if len(conditions) == 0 {
		return "", nil, errors.Wrapf(ErrInvalidOption, "range condition on %s has no bounds", c.Field)
	}

	return strings.Join(conditions, " AND "), args, nil
}

func (c *RangeCond) ToMongo() (map[string]interface{}, error) {
	rangeConditions := make(map[string]interface{})

	if c.Gt != nil {
		rangeConditions["$gt"] = c.Gt
	}
	if c.Gte != nil {
		rangeConditions["$gte"] = c.Gte
	}
	if c.Lt != nil {
		rangeConditions["$lt"] = c.Lt
	}
	if c.Lte != nil {
		rangeConditions["$lte"] = c.Lte
	}

	if len(rangeConditions) == 0 {
		return nil, errors.Wrapf(ErrInvalidOption, "range condition on %s has no bounds", c.Field)
	}

	return map[string]interface{}{
		c.Field: rangeConditions,
	}, nil
}

func (c *RangeCond) Match(row map[string]any) bool {
	v, ok := row[c.Field]
	if !ok {
		return false
	}

	if c.Gt != nil {
		if cmp, ok := compareValues(v, c.Gt); !ok || cmp <= 0 {
			return false
		}
	}
	if c.Gte != nil {
		if cmp, ok := compareValues(v, c.Gte); !ok || cmp < 0 {
			return false
		}
	}
	if c.Lt != nil {
		if cmp, ok := compareValues(v, c.Lt); !ok || cmp >= 0 {
			return false
		}
	}
	if c.Lte != nil {
		if cmp, ok := compareValues(v, c.Lte); !ok || cmp > 0 {
			return false
		}
	}

	return true
}
