package mapper

import (
	"context"

	"github.com/hatlonely/mapx/entity"
)

// Observer 生命周期钩子。字段为 nil 时跳过对应阶段；
// Before 钩子返回错误会中止写入，After 钩子在写入成功后执行
type Observer struct {
	BeforeSave   func(ctx context.Context, e *entity.Entity) error
	AfterSave    func(ctx context.Context, e *entity.Entity)
	BeforeDelete func(ctx context.Context, e *entity.Entity) error
	AfterDelete  func(ctx context.Context, e *entity.Entity)
}

func (m *Model) fireBeforeSave(ctx context.Context, e *entity.Entity) error {
	for _, o := range m.observers {
		if o.BeforeSave == nil {
			continue
		}
		if err := o.BeforeSave(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) fireAfterSave(ctx context.Context, e *entity.Entity) {
	for _, o := range m.observers {
		if o.AfterSave != nil {
			o.AfterSave(ctx, e)
		}
	}
}

func (m *Model) fireBeforeDelete(ctx context.Context, e *entity.Entity) error {
	for _, o := range m.observers {
		if o.BeforeDelete == nil {
			continue
		}
		if err := o.BeforeDelete(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) fireAfterDelete(ctx context.Context, e *entity.Entity) {
	for _, o := range m.observers {
		if o.AfterDelete != nil {
			o.AfterDelete(ctx, e)
		}
	}
}
