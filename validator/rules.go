package validator

import (
	"regexp"

	playground "github.com/go-playground/validator/v10"
)

// 规则谓词无状态，共享一个校验器实例
var validate = playground.New()

// NotEmpty 值不能为 nil、空字符串或空集合
func NotEmpty(message string) Rule {
	return Rule{
		Message: message,
		Check: func(value any) bool {
			switch v := value.(type) {
			case nil:
				return false
			case string:
				return v != ""
			case []any:
				return len(v) > 0
			case map[string]any:
				return len(v) > 0
			}
			return true
		},
	}
}

// MinLen 字符串最小长度
func MinLen(n int, message string) Rule {
	return Rule{
		Message: message,
		Check: func(value any) bool {
			s, ok := value.(string)
			return ok && len([]rune(s)) >= n
		},
	}
}

// MaxLen 字符串最大长度
func MaxLen(n int, message string) Rule {
	return Rule{
		Message: message,
		Check: func(value any) bool {
			s, ok := value.(string)
			return ok && len([]rune(s)) <= n
		},
	}
}

// Matches 正则匹配，pattern 非法时直接 panic（规则在初始化期声明）
func Matches(pattern string, message string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		Message: message,
		Check: func(value any) bool {
			s, ok := value.(string)
			return ok && re.MatchString(s)
		},
	}
}

// OneOf 值必须在枚举集合内
func OneOf(values []any, message string) Rule {
	return Rule{
		Message: message,
		Check: func(value any) bool {
			for _, candidate := range values {
				if value == candidate {
					return true
				}
			}
			return false
		},
	}
}

// Tag 复用 go-playground/validator 的 tag 语法，如 "required,email"
func Tag(tag string, message string) Rule {
	return Rule{
		Message: message,
		Check: func(value any) bool {
			return validate.Var(value, tag) == nil
		},
	}
}
