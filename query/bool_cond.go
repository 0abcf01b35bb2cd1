package query

import "strings"

// BoolCond 布尔组合条件
type BoolCond struct {
	Must    []Cond `json:"must,omitempty"`
	Should  []Cond `json:"should,omitempty"`
	MustNot []Cond `json:"must_not,omitempty"`
}

func (c *BoolCond) Type() CondType {
	return CondTypeBool
}

func (c *BoolCond) ToSQL() (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	if len(c.Must) > 0 {
		mustConditions := make([]string, 0, len(c.Must))
		for _, cond := range c.Must {
			sql, condArgs, err := cond.ToSQL()
			if err != nil {
				return "", nil, err
			}
			mustConditions = append(mustConditions, sql)
			args = append(args, condArgs...)
		}
		conditions = append(conditions, "("+strings.Join(mustConditions, " AND ")+")")
	}

	if len(c.Should) > 0 {
		shouldConditions := make([]string, 0, len(c.Should))
		for _, cond := range c.Should {
			sql, condArgs, err := cond.ToSQL()
			if err != nil {
				return "", nil, err
			}
			shouldConditions = append(shouldConditions, sql)
			args = append(args, condArgs...)
		}
		conditions = append(conditions, "("+strings.Join(shouldConditions, " OR ")+")")
	}

	if len(c.MustNot) > 0 {
		mustNotConditions := make([]string, 0, len(c.MustNot))
		for _, cond := range c.MustNot {
			sql, condArgs, err := cond.ToSQL()
			if err != nil {
				return "", nil, err
			}
			mustNotConditions = append(mustNotConditions, "NOT ("+sql+")")
			args = append(args, condArgs...)
		}
		conditions = append(conditions, "("+strings.Join(mustNotConditions, " AND ")+")")
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}

	return strings.Join(conditions, " AND "), args, nil
}

func (c *BoolCond) ToMongo() (map[string]interface{}, error) {
	andConditions := make([]interface{}, 0)

	for _, cond := range c.Must {
		condition, err := cond.ToMongo()
		if err != nil {
			return nil, err
		}
		andConditions = append(andConditions, condition)
	}

	if len(c.Should) > 0 {
		orConditions := make([]interface{}, 0, len(c.Should))
		for _, cond := range c.Should {
			condition, err := cond.ToMongo()
			if err != nil {
				return nil, err
			}
			orConditions = append(orConditions, condition)
		}
		andConditions = append(andConditions, map[string]interface{}{"$or": orConditions})
	}

	if len(c.MustNot) > 0 {
		norConditions := make([]interface{}, 0, len(c.MustNot))
		for _, cond := range c.MustNot {
			condition, err := cond.ToMongo()
			if err != nil {
				return nil, err
			}
			norConditions = append(norConditions, condition)
		}
		andConditions = append(andConditions, map[string]interface{}{"$nor": norConditions})
	}

	if len(andConditions) == 0 {
		return map[string]interface{}{}, nil
	}

	if len(andConditions) == 1 {
		if mongoCondition, ok := andConditions[0].(map[string]interface{}); ok {
			return mongoCondition, nil
		}
	}

	return map[string]interface{}{"$and": andConditions}, nil
}

func (c *BoolCond) Match(row map[string]any) bool {
	for _, cond := range c.Must {
		if !cond.Match(row) {
			return false
		}
	}

	if len(c.Should) > 0 {
		matched := false
		for _, cond := range c.Should {
			if cond.Match(row) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, cond := range c.MustNot {
		if cond.Match(row) {
			return false
		}
	}

	return true
}
