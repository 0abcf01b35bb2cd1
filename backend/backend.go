// Package backend 定义数据映射层消费的存储后端契约。
//
// 安全契约：conditions 中的值由适配器负责参数化/转义；
// fields 与 order 原样拼入语句，调用方不得把不可信输入放进这两个选项
package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/mapx/query"
)

var (
	// ErrRecordNotFound 按键定位的记录不存在
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey 唯一键冲突
	ErrDuplicateKey = errors.New("duplicate key")
)

// Backend 存储后端接口。
// 所有写操作在后端层面假定原子；取消与超时通过 ctx 透传给驱动
type Backend interface {
	// Query 执行查询描述，返回原始行
	Query(ctx context.Context, table string, d *query.Descriptor) ([]map[string]any, error)
	// Count 聚合计数
	Count(ctx context.Context, table string, d *query.Descriptor) (int64, error)
	// Insert 插入一行，返回后端生成的标识（没有时为 nil）
	Insert(ctx context.Context, table string, data map[string]any) (any, error)
	// UpdateByKey 按主键更新
	UpdateByKey(ctx context.Context, table string, key map[string]any, data map[string]any) (bool, error)
	// UpdateByQuery 按查询描述批量更新
	UpdateByQuery(ctx context.Context, table string, d *query.Descriptor, data map[string]any) (bool, error)
	// DeleteByKey 按主键删除
	DeleteByKey(ctx context.Context, table string, key map[string]any) (bool, error)
	// DeleteByQuery 按查询描述批量删除
	DeleteByQuery(ctx context.Context, table string, d *query.Descriptor) (bool, error)

	Close() error
}
