package finder

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/hatlonely/mapx/query"
)

// Call 动态查找调用名分解出的结构：基础查找器加等值条件字段
type Call struct {
	Finder string
	Fields []string
}

// ParseCall 解析 findAllByAuthor / findFirstByAuthorAndTitle 形式的调用名。
// 规则：
//   - 必须以 find 开头（首字母大小写均可）
//   - find 与 By 之间的驼峰段是基础查找器名，为空时默认 first（findByX 语义）
//   - By 之后的段按 And 拆分成字段名，驼峰转 snake_case
func ParseCall(name string) (*Call, bool) {
	rest, ok := strings.CutPrefix(name, "find")
	if !ok {
		rest, ok = strings.CutPrefix(name, "Find")
	}
	if !ok {
		return nil, false
	}

	base, fieldPart, ok := cutCamelSegment(rest, "By")
	if !ok {
		return nil, false
	}

	finderName := "first"
	if base != "" {
		finderName = lowerFirst(base)
	}

	segments := splitCamelSegments(fieldPart, "And")
	if len(segments) == 0 {
		return nil, false
	}

	fields := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			return nil, false
		}
		fields = append(fields, camelToSnake(segment))
	}

	return &Call{Finder: finderName, Fields: fields}, true
}

// ResolveCall 解析动态调用并构造查询描述。
// args 按顺序对应调用名中的字段；options 中显式给出的 conditions
// 与动态条件合并：map 按键合并且键冲突时显式条件优先，
// Cond 节点与动态条件整体 AND 连接
func (r *Registry) ResolveCall(call string, args []any, options query.Options) (Kind, *query.Descriptor, error) {
	parsed, ok := ParseCall(call)
	if !ok {
		return "", nil, errors.Wrapf(ErrUnknownFinder, "malformed dynamic finder call %q", call)
	}
	if !r.Has(parsed.Finder) {
		return "", nil, errors.Wrapf(ErrUnknownFinder, "finder %q in dynamic call %q", parsed.Finder, call)
	}
	if len(args) != len(parsed.Fields) {
		return "", nil, errors.Wrapf(query.ErrInvalidOption,
			"dynamic call %q expects %d arguments, got %d", call, len(parsed.Fields), len(args))
	}

	options = options.Clone()

	conditions := make(map[string]any, len(parsed.Fields))
	for i, field := range parsed.Fields {
		conditions[field] = args[i]
	}
	switch explicit := options[query.OptionConditions].(type) {
	case nil:
		options[query.OptionConditions] = conditions
	case map[string]any:
		// 显式条件覆盖动态条件
		for field, constraint := range explicit {
			conditions[field] = constraint
		}
		options[query.OptionConditions] = conditions
	case query.Cond:
		// Cond 节点没有字段粒度，动态条件先编译再 AND 连接
		dynamic, err := query.Build(query.Options{query.OptionConditions: conditions})
		if err != nil {
			return "", nil, err
		}
		options[query.OptionConditions] = &query.BoolCond{Must: []query.Cond{dynamic.Cond(), explicit}}
	default:
		return "", nil, errors.Wrapf(query.ErrInvalidOption,
			"invalid conditions type %T in dynamic call %q", explicit, call)
	}

	return r.Resolve(parsed.Finder, options)
}

// cutCamelSegment 在首个大写的 sep 段处切开，sep 必须是驼峰边界
func cutCamelSegment(s, sep string) (before, after string, found bool) {
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] != sep {
			continue
		}
		end := i + len(sep)
		// sep 之后必须是大写字母开头的字段段
		if end < len(s) && unicode.IsUpper(rune(s[end])) {
			return s[:i], s[end:], true
		}
	}
	return "", "", false
}

// splitCamelSegments 按驼峰边界上的 sep 拆分
func splitCamelSegments(s, sep string) []string {
	var segments []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if i <= start || s[i:i+len(sep)] != sep {
			continue
		}
		end := i + len(sep)
		if end < len(s) && unicode.IsUpper(rune(s[end])) {
			segments = append(segments, s[start:i])
			start = end
			i = end - 1
		}
	}
	segments = append(segments, s[start:])
	return segments
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// camelToSnake 驼峰转 snake_case：CreateAt -> create_at
func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
