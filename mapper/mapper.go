// Package mapper 数据映射核心：以 Model 为入口，把查找器、校验器、
// 生命周期钩子和存储后端编排成 create/find/save/update/delete 操作。
// Model 构造完成后只读，所有操作可并发调用，不跨调用共享可变状态
package mapper

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/mapx/backend"
	"github.com/hatlonely/mapx/entity"
	"github.com/hatlonely/mapx/finder"
	"github.com/hatlonely/mapx/query"
	"github.com/hatlonely/mapx/validator"
)

var (
	// ErrEntityDeleted 已删除的实体不可再持久化
	ErrEntityDeleted = errors.New("entity has been deleted")
	// ErrMissingPrimaryKey 实体缺少主键字段，无法按键写入
	ErrMissingPrimaryKey = errors.New("entity has no primary key")
	// ErrUnscopedRemove 无条件批量删除必须显式确认
	ErrUnscopedRemove = errors.New("unscoped remove requires explicit confirmation")
)

// ModelOptions 模型配置
type ModelOptions struct {
	// 表名或集合名，必填
	Table string `cfg:"table" validate:"required"`

	// 主键字段名
	PrimaryKey string `cfg:"primaryKey" def:"id"`

	// list 查找器的展示字段
	DisplayField string `cfg:"displayField" def:"title"`

	// 插入时主键缺失是否自动生成
	GenerateKey bool `cfg:"generateKey"`

	// 生成主键使用的 UUID 版本
	KeyVersion string `cfg:"keyVersion" def:"v4"`
}

// Model 一张表/集合的数据映射器
type Model struct {
	backend      backend.Backend
	table        string
	primaryKey   string
	displayField string

	finders   *finder.Registry
	rules     *validator.Rules
	observers []Observer
	keygen    *KeyGenerator
}

// ModelOption 构造期扩展点
type ModelOption func(m *Model)

// WithRules 挂载校验规则集
func WithRules(rules *validator.Rules) ModelOption {
	return func(m *Model) {
		m.rules = rules
	}
}

// WithFinder 注册具名查找器，后注册者覆盖同名项
func WithFinder(name string, f finder.Finder) ModelOption {
	return func(m *Model) {
		m.finders.Register(name, f)
	}
}

// WithObserver 追加生命周期钩子，按追加顺序执行
func WithObserver(o Observer) ModelOption {
	return func(m *Model) {
		m.observers = append(m.observers, o)
	}
}

func NewModelWithOptions(b backend.Backend, options *ModelOptions, opts ...ModelOption) (*Model, error) {
	if b == nil {
		return nil, errors.New("backend is nil")
	}
	if options == nil || options.Table == "" {
		return nil, errors.New("table is required")
	}
	if options.PrimaryKey == "" {
		options.PrimaryKey = "id"
	}
	if options.DisplayField == "" {
		options.DisplayField = "title"
	}

	m := &Model{
		backend:      b,
		table:        options.Table,
		primaryKey:   options.PrimaryKey,
		displayField: options.DisplayField,
		finders:      finder.NewRegistry(),
	}

	if options.GenerateKey {
		m.keygen = NewKeyGeneratorWithOptions(&KeyGeneratorOptions{Version: options.KeyVersion})
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Table 表名或集合名
func (m *Model) Table() string {
	return m.table
}

// PrimaryKey 主键字段名
func (m *Model) PrimaryKey() string {
	return m.primaryKey
}

// entityMapper 实体反向引用的适配层，收敛到无选项的 Save/Delete
type entityMapper struct {
	m *Model
}

func (a entityMapper) Save(ctx context.Context, e *entity.Entity, data map[string]any) (bool, error) {
	return a.m.Save(ctx, e, data)
}

func (a entityMapper) Delete(ctx context.Context, e *entity.Entity) (bool, error) {
	return a.m.Delete(ctx, e)
}

// CreateOption 实体构造选项
type CreateOption func(o *createOptions)

type createOptions struct {
	exists bool
}

// WithExists 表示存储侧已有对应行，构造已存在实体而不触发检索
func WithExists() CreateOption {
	return func(o *createOptions) {
		o.exists = true
	}
}

// Create 纯构造实体，不访问存储
func (m *Model) Create(data map[string]any, opts ...CreateOption) *entity.Entity {
	o := &createOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return entity.New(data, o.exists).Bind(entityMapper{m})
}

// Find 按具名查找器检索。结果形态由查找器决定，见 Result
func (m *Model) Find(ctx context.Context, name string, options query.Options) (*Result, error) {
	kind, d, err := m.finders.Resolve(name, options)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, kind, d)
}

// FindBy 动态查找调用：FindBy(ctx, "findAllByAuthor", []any{"michael"}, nil)
// 等价于 Find(ctx, "all", {conditions: {author: "michael"}})
func (m *Model) FindBy(ctx context.Context, call string, args []any, options query.Options) (*Result, error) {
	kind, d, err := m.finders.ResolveCall(call, args, options)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, kind, d)
}

func (m *Model) execute(ctx context.Context, kind finder.Kind, d *query.Descriptor) (*Result, error) {
	if kind == finder.KindCount {
		count, err := m.backend.Count(ctx, m.table, d)
		if err != nil {
			return nil, err
		}
		return &Result{kind: kind, count: count}, nil
	}

	rows, err := m.backend.Query(ctx, m.table, d)
	if err != nil {
		return nil, err
	}

	result := &Result{kind: kind, entities: make([]*entity.Entity, 0, len(rows))}
	for _, row := range rows {
		result.entities = append(result.entities, entity.New(row, true).Bind(entityMapper{m}))
	}

	if kind == finder.KindList {
		result.list = make(map[any]any, len(rows))
		for _, row := range rows {
			key := row[m.primaryKey]
			result.listKeys = append(result.listKeys, key)
			result.list[key] = row[m.displayField]
		}
	}

	return result, nil
}

// Count 统计满足条件的行数
func (m *Model) Count(ctx context.Context, conditions map[string]any) (int64, error) {
	d, err := m.descriptorOf(conditions)
	if err != nil {
		return 0, err
	}
	return m.backend.Count(ctx, m.table, d)
}

// Exists 判断是否存在满足条件的行
func (m *Model) Exists(ctx context.Context, conditions map[string]any) (bool, error) {
	count, err := m.Count(ctx, conditions)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveOption 保存选项
type SaveOption func(o *saveOptions)

type saveOptions struct {
	skipValidate  bool
	skipCallbacks bool
	events        []string
	whitelist     []string
}

// WithoutValidation 跳过校验
func WithoutValidation() SaveOption {
	return func(o *saveOptions) {
		o.skipValidate = true
	}
}

// WithoutCallbacks 跳过生命周期钩子
func WithoutCallbacks() SaveOption {
	return func(o *saveOptions) {
		o.skipCallbacks = true
	}
}

// WithEvents 指定校验事件上下文，默认按实体存在性取 create/update
func WithEvents(events ...string) SaveOption {
	return func(o *saveOptions) {
		o.events = events
	}
}

// WithWhitelist 限定本次写入存储的字段。白名单外的字段保留在实体中
// 且不丢失修改标记，后续不带白名单的保存会照常下发
func WithWhitelist(fields ...string) SaveOption {
	return func(o *saveOptions) {
		o.whitelist = fields
	}
}

// Save 持久化实体。data 不为 nil 时先合并进实体；
// 校验失败时写入 entity.Errors 并返回 (false, nil)，不触碰存储；
// 新实体走 Insert（主键缺失且开启生成时自动补键），已存在实体按主键 Update
func (m *Model) Save(ctx context.Context, e *entity.Entity, data map[string]any, opts ...SaveOption) (bool, error) {
	if e.Deleted() {
		return false, errors.WithStack(ErrEntityDeleted)
	}

	o := &saveOptions{}
	for _, opt := range opts {
		opt(o)
	}

	for field, value := range data {
		e.Set(field, value)
	}

	if !o.skipValidate && m.rules != nil {
		events := o.events
		if len(events) == 0 {
			if e.Exists() {
				events = []string{validator.EventUpdate}
			} else {
				events = []string{validator.EventCreate}
			}
		}
		if errs := m.rules.Validate(e.Data(), events); len(errs) > 0 {
			e.SetErrors(errs)
			return false, nil
		}
		e.ClearErrors()
	}

	if !o.skipCallbacks {
		if err := m.fireBeforeSave(ctx, e); err != nil {
			return false, err
		}
	}

	var sent []string
	if !e.Exists() {
		if m.keygen != nil && !e.Has(m.primaryKey) {
			e.Set(m.primaryKey, m.keygen.Generate())
		}

		payload := m.payload(e, e.Fields(), o.whitelist)
		identity, err := m.backend.Insert(ctx, m.table, payload)
		if err != nil {
			return false, err
		}
		if identity != nil && !e.Has(m.primaryKey) {
			e.Set(m.primaryKey, identity)
		}
		sent = sentFields(payload, o.whitelist)
	} else {
		if !e.Has(m.primaryKey) {
			return false, errors.WithStack(ErrMissingPrimaryKey)
		}

		payload := m.payload(e, e.Modified(), o.whitelist)
		if len(payload) > 0 {
			ok, err := m.backend.UpdateByKey(ctx, m.table, map[string]any{m.primaryKey: e.Get(m.primaryKey)}, payload)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		sent = sentFields(payload, o.whitelist)
	}

	e.MarkSaved(sent)
	if !o.skipCallbacks {
		m.fireAfterSave(ctx, e)
	}
	return true, nil
}

// sentFields 白名单生效时返回实际下发的字段，MarkSaved 据此只清除
// 这些字段的修改标记，白名单外的脏字段留到下次保存补发。
// 没有白名单时返回 nil，表示全量清除
func sentFields(payload map[string]any, whitelist []string) []string {
	if len(whitelist) == 0 {
		return nil
	}
	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	return fields
}

// payload 取实体字段构造写入载荷，应用白名单过滤；主键始终下发
func (m *Model) payload(e *entity.Entity, fields []string, whitelist []string) map[string]any {
	allowed := map[string]bool{}
	for _, field := range whitelist {
		allowed[field] = true
	}

	payload := make(map[string]any, len(fields))
	for _, field := range fields {
		if len(whitelist) > 0 && !allowed[field] && field != m.primaryKey {
			continue
		}
		payload[field] = e.Get(field)
	}
	return payload
}

// Update 批量更新，绕过实体构造与校验，直接下发存储。
// 危险路径：需要校验的调用方必须自行校验
func (m *Model) Update(ctx context.Context, data map[string]any, conditions map[string]any) (bool, error) {
	d, err := m.descriptorOf(conditions)
	if err != nil {
		return false, err
	}
	return m.backend.UpdateByQuery(ctx, m.table, d, data)
}

// RemoveOption 批量删除选项
type RemoveOption func(o *removeOptions)

type removeOptions struct {
	unscoped bool
}

// WithUnscoped 显式确认无条件删除全表
func WithUnscoped() RemoveOption {
	return func(o *removeOptions) {
		o.unscoped = true
	}
}

// Remove 批量删除。无条件删除必须携带 WithUnscoped，否则直接失败，
// 防止静默清空全表
func (m *Model) Remove(ctx context.Context, conditions map[string]any, opts ...RemoveOption) (bool, error) {
	o := &removeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if len(conditions) == 0 && !o.unscoped {
		return false, errors.WithStack(ErrUnscopedRemove)
	}

	d, err := m.descriptorOf(conditions)
	if err != nil {
		return false, err
	}
	return m.backend.DeleteByQuery(ctx, m.table, d)
}

// Delete 按主键删除实体对应的行。成功后实体作废；
// 对已删除实体再次调用返回 (false, nil)，幂等不报错
func (m *Model) Delete(ctx context.Context, e *entity.Entity) (bool, error) {
	if e.Deleted() {
		return false, nil
	}
	if !e.Has(m.primaryKey) {
		return false, errors.WithStack(ErrMissingPrimaryKey)
	}

	if err := m.fireBeforeDelete(ctx, e); err != nil {
		return false, err
	}

	ok, err := m.backend.DeleteByKey(ctx, m.table, map[string]any{m.primaryKey: e.Get(m.primaryKey)})
	if err != nil {
		return false, err
	}
	if ok {
		e.MarkDeleted()
		m.fireAfterDelete(ctx, e)
	}
	return ok, nil
}

func (m *Model) descriptorOf(conditions map[string]any) (*query.Descriptor, error) {
	options := query.Options{}
	if len(conditions) > 0 {
		options[query.OptionConditions] = conditions
	}
	return query.Build(options)
}
