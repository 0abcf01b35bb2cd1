package mapper

import (
	"github.com/hatlonely/mapx/entity"
	"github.com/hatlonely/mapx/finder"
)

// Result 一次查找的结果。形态由查找器决定：
// all 是实体序列，first 最多一个实体，count 是整数，
// list 是主键到展示字段的映射
type Result struct {
	kind     finder.Kind
	entities []*entity.Entity
	count    int64
	listKeys []any
	list     map[any]any
}

// Kind 结果形态
func (r *Result) Kind() finder.Kind {
	return r.kind
}

// All 返回全部实体，顺序与检索顺序一致
func (r *Result) All() []*entity.Entity {
	return r.entities
}

// First 返回首个实体，无结果时返回 nil
func (r *Result) First() *entity.Entity {
	if len(r.entities) == 0 {
		return nil
	}
	return r.entities[0]
}

// Count 对 count 查找器返回聚合值，其余形态返回实体数量
func (r *Result) Count() int64 {
	if r.kind == finder.KindCount {
		return r.count
	}
	return int64(len(r.entities))
}

// List 返回主键到展示字段的映射，仅 list 形态非空
func (r *Result) List() map[any]any {
	return r.list
}

// ListKeys 返回 list 映射的键，保持检索顺序
func (r *Result) ListKeys() []any {
	return r.listKeys
}

// Collection 以集合视图返回实体，用于整体序列化
func (r *Result) Collection() entity.Collection {
	return entity.Collection(r.entities)
}
