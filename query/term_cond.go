package query

import "fmt"

// TermCond 精确匹配条件
type TermCond struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

func (c *TermCond) Type() CondType {
	return CondTypeTerm
}

func (c *TermCond) ToSQL() (string, []interface{}, error) {
	if c.Value == nil {
		return fmt.Sprintf("%s IS NULL", c.Field), nil, nil
	}
	return fmt.Sprintf("%s = ?", c.Field), []interface{}{c.Value}, nil
}

func (c *TermCond) ToMongo() (map[string]interface{}, error) {
	return map[string]interface{}{
		c.Field: c.Value,
	}, nil
}

func (c *TermCond) Match(row map[string]any) bool {
	v, ok := row[c.Field]
	if !ok {
		return c.Value == nil
	}
	if c.Value == nil {
		return v == nil
	}
	return equalValues(v, c.Value)
}
