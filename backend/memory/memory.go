// Package memory 进程内存储后端。
// 行按插入顺序存放，没有排序选项时按该物理顺序返回；
// 主要面向测试与原型，所有数据随进程消失
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hatlonely/mapx/query"
)

// Memory 进程内后端实现
type Memory struct {
	mutex  sync.RWMutex
	tables map[string][]map[string]any
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]map[string]any)}
}

func cloneRow(row map[string]any) map[string]any {
	cloned := make(map[string]any, len(row))
	for k, v := range row {
		cloned[k] = v
	}
	return cloned
}

func matches(d *query.Descriptor, row map[string]any) bool {
	if d == nil || d.Cond() == nil {
		return true
	}
	return d.Cond().Match(row)
}

func (m *Memory) Query(ctx context.Context, table string, d *query.Descriptor) ([]map[string]any, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var rows []map[string]any
	for _, row := range m.tables[table] {
		if matches(d, row) {
			rows = append(rows, cloneRow(row))
		}
	}

	if d != nil {
		sortRows(rows, d.Order())
		rows = paginate(rows, d.Limit(), d.Offset())
		rows = project(rows, d.Fields())
	}

	return rows, nil
}

// sortRows 按排序项稳定排序，未指定排序时保持插入顺序
func sortRows(rows []map[string]any, order []query.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			cmp, ok := compareField(rows[i][o.Field], rows[j][o.Field])
			if !ok || cmp == 0 {
				continue
			}
			if o.Direction == query.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareField 借助相等匹配和范围匹配复用 query 包的比较语义
func compareField(a, b any) (int, bool) {
	if (&query.TermCond{Field: "f", Value: b}).Match(map[string]any{"f": a}) {
		return 0, true
	}
	if (&query.RangeCond{Field: "f", Lt: b}).Match(map[string]any{"f": a}) {
		return -1, true
	}
	if (&query.RangeCond{Field: "f", Gt: b}).Match(map[string]any{"f": a}) {
		return 1, true
	}
	return 0, false
}

func paginate(rows []map[string]any, limit, offset int) []map[string]any {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func project(rows []map[string]any, fields []string) []map[string]any {
	if len(fields) == 0 {
		return rows
	}
	projected := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		p := make(map[string]any, len(fields))
		for _, field := range fields {
			if v, ok := row[field]; ok {
				p[field] = v
			}
		}
		projected = append(projected, p)
	}
	return projected
}

func (m *Memory) Count(ctx context.Context, table string, d *query.Descriptor) (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var count int64
	for _, row := range m.tables[table] {
		if matches(d, row) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Insert(ctx context.Context, table string, data map[string]any) (any, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.tables[table] = append(m.tables[table], cloneRow(data))
	// 内存后端不生成标识，主键由调用方提供
	return nil, nil
}

func matchesKey(row map[string]any, key map[string]any) bool {
	for field, value := range key {
		if !(&query.TermCond{Field: field, Value: value}).Match(row) {
			return false
		}
	}
	return true
}

func (m *Memory) UpdateByKey(ctx context.Context, table string, key map[string]any, data map[string]any) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, row := range m.tables[table] {
		if matchesKey(row, key) {
			for field, value := range data {
				row[field] = value
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) UpdateByQuery(ctx context.Context, table string, d *query.Descriptor, data map[string]any) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, row := range m.tables[table] {
		if matches(d, row) {
			for field, value := range data {
				row[field] = value
			}
		}
	}
	return true, nil
}

func (m *Memory) DeleteByKey(ctx context.Context, table string, key map[string]any) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rows := m.tables[table]
	for i, row := range rows {
		if matchesKey(row, key) {
			m.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) DeleteByQuery(ctx context.Context, table string, d *query.Descriptor) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rows := m.tables[table]
	kept := rows[:0:0]
	for _, row := range rows {
		if !matches(d, row) {
			kept = append(kept, row)
		}
	}
	m.tables[table] = kept
	return true, nil
}

func (m *Memory) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.tables = make(map[string][]map[string]any)
	return nil
}
