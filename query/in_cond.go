package query

import (
	"fmt"
	"strings"
)

// InCond 集合匹配条件
type InCond struct {
	Field  string        `json:"field"`
	Values []interface{} `json:"values"`
}

func (c *InCond) Type() CondType {
	return CondTypeIn
}

func (c *InCond) ToSQL() (string, []interface{}, error) {
	if len(c.Values) == 0 {
		// 空集合匹配不到任何行
		return "1=0", nil, nil
	}

	placeholders := make([]string, len(c.Values))
	for i := range c.Values {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(placeholders, ", ")), c.Values, nil
}

func (c *InCond) ToMongo() (map[string]interface{}, error) {
	return map[string]interface{}{
		c.Field: map[string]interface{}{
			"$in": c.Values,
		},
	}, nil
}

func (c *InCond) Match(row map[string]any) bool {
	v, ok := row[c.Field]
	if !ok {
		return false
	}
	for _, candidate := range c.Values {
		if equalValues(v, candidate) {
			return true
		}
	}
	return false
}
