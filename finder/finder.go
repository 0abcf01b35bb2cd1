package finder

import (
	"github.com/pkg/errors"

	"github.com/hatlonely/mapx/query"
)

// ErrUnknownFinder 未注册的查找器名称
var ErrUnknownFinder = errors.New("unknown finder")

// Kind 查找器的结果形态
type Kind string

const (
	// KindAll 返回实体序列
	KindAll Kind = "all"
	// KindFirst 强制 limit=1，解包为单个实体
	KindFirst Kind = "first"
	// KindCount 聚合计数，返回整数
	KindCount Kind = "count"
	// KindList 检索后重整为主键到展示字段的映射
	KindList Kind = "list"
)

// Rewrite 查找器对选项的改写，在 Build 之前执行
type Rewrite func(options query.Options) (query.Options, error)

// Finder 具名查询模板
type Finder struct {
	Kind    Kind
	Rewrite Rewrite
}

// Registry 具名查找器注册表。构造后只读，Resolve 可并发调用
type Registry struct {
	finders map[string]Finder
}

// NewRegistry 创建带内建查找器（all/first/count/list）的注册表
func NewRegistry() *Registry {
	r := &Registry{finders: make(map[string]Finder)}

	r.Register("all", Finder{Kind: KindAll})
	r.Register("first", Finder{
		Kind: KindFirst,
		Rewrite: func(options query.Options) (query.Options, error) {
			options[query.OptionLimit] = 1
			delete(options, query.OptionPage)
			return options, nil
		},
	})
	r.Register("count", Finder{Kind: KindCount})
	r.Register("list", Finder{Kind: KindList})

	return r
}

// Register 注册或覆盖查找器，后注册者生效
func (r *Registry) Register(name string, f Finder) {
	if f.Kind == "" {
		f.Kind = KindAll
	}
	r.finders[name] = f
}

// Has 判断查找器是否已注册
func (r *Registry) Has(name string) bool {
	_, ok := r.finders[name]
	return ok
}

// Resolve 按名称解析查找器并构造查询描述
func (r *Registry) Resolve(name string, options query.Options) (Kind, *query.Descriptor, error) {
	f, ok := r.finders[name]
	if !ok {
		return "", nil, errors.Wrapf(ErrUnknownFinder, "finder %q", name)
	}

	options = options.Clone()
	if f.Rewrite != nil {
		var err error
		options, err = f.Rewrite(options)
		if err != nil {
			return "", nil, err
		}
	}

	d, err := query.Build(options)
	if err != nil {
		return "", nil, err
	}

	return f.Kind, d, nil
}
