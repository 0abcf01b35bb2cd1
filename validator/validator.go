package validator

// 内建事件上下文标签
const (
	EventCreate = "create"
	EventUpdate = "update"
)

// Rule 单条校验规则。Events 为空表示适用于所有事件
type Rule struct {
	Check   func(value any) bool
	Message string
	Events  []string
}

// On 返回限定事件上下文的规则拷贝
func (r Rule) On(events ...string) Rule {
	r.Events = events
	return r
}

func (r Rule) applies(events []string) bool {
	if len(r.Events) == 0 {
		return true
	}
	for _, ruleEvent := range r.Events {
		if ruleEvent == "all" {
			return true
		}
		for _, event := range events {
			if ruleEvent == event {
				return true
			}
		}
	}
	return false
}

// Rules 按字段组织的规则集。声明顺序即求值顺序；
// 构造完成后只读，Validate 可并发调用
type Rules struct {
	fields []string
	rules  map[string][]Rule
}

// NewRules 创建空规则集
func NewRules() *Rules {
	return &Rules{rules: make(map[string][]Rule)}
}

// Field 为字段追加规则，支持链式声明；重复声明按追加处理
func (r *Rules) Field(name string, rules ...Rule) *Rules {
	if _, ok := r.rules[name]; !ok {
		r.fields = append(r.fields, name)
	}
	r.rules[name] = append(r.rules[name], rules...)
	return r
}

// Validate 对数据执行给定事件上下文下的所有适用规则。
// 不短路：每条失败规则都会追加消息，一轮暴露全部错误。
// 返回字段到消息列表的映射，全部通过时为空表
func (r *Rules) Validate(data map[string]any, events []string) map[string][]string {
	result := make(map[string][]string)

	for _, field := range r.fields {
		value := data[field]
		for _, rule := range r.rules[field] {
			if !rule.applies(events) {
				continue
			}
			if rule.Check != nil && !rule.Check(value) {
				result[field] = append(result[field], rule.Message)
			}
		}
	}

	return result
}
