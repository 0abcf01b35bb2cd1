package entity

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrUnbound 实体没有绑定 Mapper，无法转发 Save/Delete
	ErrUnbound = errors.New("entity is not bound to a mapper")
)

// Mapper 实体反向引用的最小接口，由 mapper.Model 实现。
// 实体只借助它转发 Save/Delete，不拥有 Mapper
type Mapper interface {
	Save(ctx context.Context, e *Entity, data map[string]any) (bool, error)
	Delete(ctx context.Context, e *Entity) (bool, error)
}

// Entity 一条内存中的记录。
// 字段保持插入顺序；exists 表示存储侧是否已有对应行；
// modified 记录自装载/保存以来变更过的字段；
// errors 存放最近一次校验产生的错误信息
type Entity struct {
	fields   []string
	data     map[string]any
	exists   bool
	deleted  bool
	modified map[string]struct{}
	errors   map[string][]string
	mapper   Mapper
}

// New 构造实体。初始字段按名称排序写入（Go 的 map 没有顺序），
// 之后通过 Set 新增的字段按赋值顺序追加
func New(data map[string]any, exists bool) *Entity {
	e := &Entity{
		data:     make(map[string]any, len(data)),
		modified: make(map[string]struct{}),
		exists:   exists,
	}

	fields := make([]string, 0, len(data))
	for field := range data {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		e.fields = append(e.fields, field)
		e.data[field] = data[field]
	}

	return e
}

// Bind 绑定所属 Mapper，仅用于路由 Save/Delete 调用
func (e *Entity) Bind(m Mapper) *Entity {
	e.mapper = m
	return e
}

// Get 读取字段值，字段不存在时返回 nil
func (e *Entity) Get(field string) any {
	return e.data[field]
}

// Has 判断字段是否存在
func (e *Entity) Has(field string) bool {
	_, ok := e.data[field]
	return ok
}

// Set 赋值字段并标记为已修改
func (e *Entity) Set(field string, value any) {
	if _, ok := e.data[field]; !ok {
		e.fields = append(e.fields, field)
	}
	e.data[field] = value
	e.modified[field] = struct{}{}
}

// Fields 返回字段名，保持插入顺序
func (e *Entity) Fields() []string {
	return append([]string(nil), e.fields...)
}

// Data 返回字段数据的拷贝
func (e *Entity) Data() map[string]any {
	data := make(map[string]any, len(e.data))
	for field, value := range e.data {
		data[field] = value
	}
	return data
}

// Exists 存储侧是否已有对应行
func (e *Entity) Exists() bool {
	return e.exists
}

// Deleted 实体是否已被删除（删除后不可再持久化）
func (e *Entity) Deleted() bool {
	return e.deleted
}

// Modified 返回自装载/保存以来变更过的字段
func (e *Entity) Modified() []string {
	modified := make([]string, 0, len(e.modified))
	for _, field := range e.fields {
		if _, ok := e.modified[field]; ok {
			modified = append(modified, field)
		}
	}
	return modified
}

// IsModified 判断字段是否被修改过
func (e *Entity) IsModified(field string) bool {
	_, ok := e.modified[field]
	return ok
}

// Errors 返回最近一次校验错误的拷贝，字段到消息列表的映射
func (e *Entity) Errors() map[string][]string {
	errs := make(map[string][]string, len(e.errors))
	for field, messages := range e.errors {
		errs[field] = append([]string(nil), messages...)
	}
	return errs
}

// IsValid 最近一次校验是否通过
func (e *Entity) IsValid() bool {
	return len(e.errors) == 0
}

// SetErrors 写入校验错误，由 Mapper 在 Save 失败时调用
func (e *Entity) SetErrors(errs map[string][]string) {
	e.errors = errs
}

// ClearErrors 清空校验错误
func (e *Entity) ClearErrors() {
	e.errors = nil
}

// MarkSaved 写入成功后的状态迁移：exists 置真，清空校验错误。
// sent 为 nil 时清空整个修改集，否则只清除下发过的字段，
// 未下发的脏字段保留修改标记等待下次保存
func (e *Entity) MarkSaved(sent []string) {
	e.exists = true
	e.errors = nil
	if sent == nil {
		e.modified = make(map[string]struct{})
		return
	}
	for _, field := range sent {
		delete(e.modified, field)
	}
}

// MarkDeleted 删除成功后的状态迁移：实体作废，不可再持久化
func (e *Entity) MarkDeleted() {
	e.exists = false
	e.deleted = true
}

// Save 转发到所属 Mapper，data 不为 nil 时先合并进实体
func (e *Entity) Save(ctx context.Context, data map[string]any) (bool, error) {
	if e.mapper == nil {
		return false, errors.WithStack(ErrUnbound)
	}
	return e.mapper.Save(ctx, e, data)
}

// Delete 转发到所属 Mapper
func (e *Entity) Delete(ctx context.Context) (bool, error) {
	if e.mapper == nil {
		return false, errors.WithStack(ErrUnbound)
	}
	return e.mapper.Delete(ctx, e)
}
