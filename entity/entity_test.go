package entity

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntityFieldOrder(t *testing.T) {
	Convey("测试实体字段顺序", t, func() {
		Convey("初始字段按名称排序", func() {
			e := New(map[string]any{"title": "First Post", "author": "michael", "id": 1}, false)
			So(e.Fields(), ShouldResemble, []string{"author", "id", "title"})
		})

		Convey("新字段按赋值顺序追加", func() {
			e := New(map[string]any{"title": "First Post"}, false)
			e.Set("status", "draft")
			e.Set("author", "michael")
			So(e.Fields(), ShouldResemble, []string{"title", "status", "author"})
		})

		Convey("重复赋值不改变顺序", func() {
			e := New(map[string]any{"author": "michael", "title": "First Post"}, false)
			e.Set("title", "Updated")
			So(e.Fields(), ShouldResemble, []string{"author", "title"})
			So(e.Get("title"), ShouldEqual, "Updated")
		})
	})
}

func TestEntityModified(t *testing.T) {
	Convey("测试实体修改追踪", t, func() {
		e := New(map[string]any{"id": 1, "title": "First Post"}, true)

		Convey("初始状态没有修改", func() {
			So(e.Modified(), ShouldBeEmpty)
		})

		Convey("Set 标记字段为已修改", func() {
			e.Set("title", "Updated")
			So(e.Modified(), ShouldResemble, []string{"title"})
			So(e.IsModified("title"), ShouldBeTrue)
			So(e.IsModified("id"), ShouldBeFalse)
		})

		Convey("MarkSaved(nil) 清空修改集并置 exists", func() {
			e.Set("title", "Updated")
			e.MarkSaved(nil)
			So(e.Modified(), ShouldBeEmpty)
			So(e.Exists(), ShouldBeTrue)
		})

		Convey("MarkSaved 只清除下发过的字段", func() {
			e.Set("title", "Updated")
			e.Set("author", "michael")
			e.MarkSaved([]string{"title"})
			So(e.Modified(), ShouldResemble, []string{"author"})
			So(e.IsModified("title"), ShouldBeFalse)
		})
	})
}

func TestEntityLifecycle(t *testing.T) {
	Convey("测试实体生命周期状态", t, func() {
		Convey("新建实体 exists 为假", func() {
			e := New(map[string]any{"title": "First Post"}, false)
			So(e.Exists(), ShouldBeFalse)
			So(e.Deleted(), ShouldBeFalse)
		})

		Convey("可以表示已知存在的记录", func() {
			e := New(map[string]any{"id": 1}, true)
			So(e.Exists(), ShouldBeTrue)
		})

		Convey("MarkDeleted 作废实体", func() {
			e := New(map[string]any{"id": 1}, true)
			e.MarkDeleted()
			So(e.Exists(), ShouldBeFalse)
			So(e.Deleted(), ShouldBeTrue)
		})
	})
}

func TestEntityErrors(t *testing.T) {
	Convey("测试实体校验错误状态", t, func() {
		e := New(map[string]any{"title": ""}, false)
		So(e.IsValid(), ShouldBeTrue)

		e.SetErrors(map[string][]string{"title": {"title must not be empty"}})
		So(e.IsValid(), ShouldBeFalse)
		So(e.Errors()["title"], ShouldHaveLength, 1)

		e.ClearErrors()
		So(e.IsValid(), ShouldBeTrue)

		Convey("Errors 返回拷贝", func() {
			e.SetErrors(map[string][]string{"title": {"title must not be empty"}})
			errs := e.Errors()
			errs["author"] = []string{"hacked"}
			errs["title"][0] = "hacked"
			So(e.Errors(), ShouldNotContainKey, "author")
			So(e.Errors()["title"][0], ShouldEqual, "title must not be empty")
		})

		Convey("MarkSaved 同时清除校验错误", func() {
			e.SetErrors(map[string][]string{"title": {"title must not be empty"}})
			e.MarkSaved(nil)
			So(e.IsValid(), ShouldBeTrue)
			So(e.Errors(), ShouldBeEmpty)
		})
	})
}

// fakeMapper 记录转发调用
type fakeMapper struct {
	savedData map[string]any
	deleted   bool
}

func (m *fakeMapper) Save(ctx context.Context, e *Entity, data map[string]any) (bool, error) {
	m.savedData = data
	return true, nil
}

func (m *fakeMapper) Delete(ctx context.Context, e *Entity) (bool, error) {
	m.deleted = true
	return true, nil
}

func TestEntityForwarding(t *testing.T) {
	Convey("测试实体到 Mapper 的转发", t, func() {
		ctx := context.Background()

		Convey("未绑定时 Save 报 ErrUnbound", func() {
			e := New(map[string]any{"title": "First Post"}, false)
			ok, err := e.Save(ctx, nil)
			So(ok, ShouldBeFalse)
			So(errors.Is(err, ErrUnbound), ShouldBeTrue)
		})

		Convey("绑定后 Save/Delete 转发到 Mapper", func() {
			m := &fakeMapper{}
			e := New(map[string]any{"title": "First Post"}, false).Bind(m)

			ok, err := e.Save(ctx, map[string]any{"status": "draft"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(m.savedData, ShouldResemble, map[string]any{"status": "draft"})

			ok, err = e.Delete(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(m.deleted, ShouldBeTrue)
		})
	})
}

func TestEntityDataCopy(t *testing.T) {
	Convey("测试 Data 返回拷贝", t, func() {
		e := New(map[string]any{"title": "First Post"}, false)
		data := e.Data()
		data["title"] = "hacked"
		So(e.Get("title"), ShouldEqual, "First Post")
	})
}
