package sqldb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/mapx/backend"
	"github.com/hatlonely/mapx/query"
)

func newTestSQL() *SQL {
	s, err := NewSQLWithOptions(&SQLOptions{
		Driver:   "sqlite3",
		Database: ":memory:",
	})
	So(err, ShouldBeNil)

	_, err = s.db.Exec(`CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author TEXT,
		title TEXT,
		views INTEGER
	)`)
	So(err, ShouldBeNil)
	return s
}

func seedPosts(s *SQL) {
	ctx := context.Background()
	for _, row := range []map[string]any{
		{"author": "michael", "title": "First Post", "views": 10},
		{"author": "michael", "title": "Second Post", "views": 30},
		{"author": "john", "title": "Hello", "views": 20},
	} {
		_, err := s.Insert(ctx, "posts", row)
		So(err, ShouldBeNil)
	}
}

func build(options query.Options) *query.Descriptor {
	d, err := query.Build(options)
	So(err, ShouldBeNil)
	return d
}

func TestSQLQuery(t *testing.T) {
	Convey("测试 SQL Query 方法", t, func() {
		s := newTestSQL()
		defer s.Close()
		seedPosts(s)
		ctx := context.Background()

		Convey("条件过滤", func() {
			rows, err := s.Query(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": "michael"},
			}))
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("IN 条件", func() {
			rows, err := s.Query(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": []string{"michael", "john"}},
			}))
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
		})

		Convey("排序和分页", func() {
			rows, err := s.Query(ctx, "posts", build(query.Options{
				"order": query.Order{Field: "views", Direction: "DESC"},
				"limit": 2,
			}))
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0]["views"], ShouldEqual, 30)
			So(rows[1]["views"], ShouldEqual, 20)
		})

		Convey("字段投影", func() {
			rows, err := s.Query(ctx, "posts", build(query.Options{
				"fields": []string{"id", "title"},
				"limit":  1,
			}))
			So(err, ShouldBeNil)
			So(rows[0], ShouldContainKey, "title")
			So(rows[0], ShouldNotContainKey, "author")
		})

		Convey("范围条件", func() {
			rows, err := s.Query(ctx, "posts", build(query.Options{
				"conditions": map[string]any{
					"views": &query.RangeCond{Field: "views", Gte: 20},
				},
			}))
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})
	})
}

func TestSQLCount(t *testing.T) {
	Convey("测试 SQL Count 方法", t, func() {
		s := newTestSQL()
		defer s.Close()
		seedPosts(s)

		count, err := s.Count(context.Background(), "posts", build(query.Options{
			"conditions": map[string]any{"author": "michael"},
		}))
		So(err, ShouldBeNil)
		So(count, ShouldEqual, 2)
	})
}

func TestSQLWrites(t *testing.T) {
	Convey("测试 SQL 写操作", t, func() {
		s := newTestSQL()
		defer s.Close()
		seedPosts(s)
		ctx := context.Background()

		Convey("Insert 返回自增主键", func() {
			id, err := s.Insert(ctx, "posts", map[string]any{"author": "jane", "title": "New", "views": 0})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 4)
		})

		Convey("UpdateByKey 命中返回 true", func() {
			ok, err := s.UpdateByKey(ctx, "posts", map[string]any{"id": 1}, map[string]any{"title": "Updated"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			rows, err := s.Query(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"id": 1},
			}))
			So(err, ShouldBeNil)
			So(rows[0]["title"], ShouldEqual, "Updated")
		})

		Convey("UpdateByKey 未命中返回 false", func() {
			ok, err := s.UpdateByKey(ctx, "posts", map[string]any{"id": 99}, map[string]any{"title": "x"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("UpdateByQuery 批量更新", func() {
			ok, err := s.UpdateByQuery(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": "michael"},
			}), map[string]any{"views": 0})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			count, err := s.Count(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"views": 0},
			}))
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 2)
		})

		Convey("DeleteByKey 幂等", func() {
			ok, err := s.DeleteByKey(ctx, "posts", map[string]any{"id": 2})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			ok, err = s.DeleteByKey(ctx, "posts", map[string]any{"id": 2})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("DeleteByQuery 批量删除", func() {
			ok, err := s.DeleteByQuery(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": "michael"},
			}))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			count, err := s.Count(ctx, "posts", build(query.Options{}))
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})

		Convey("唯一键冲突归一化为 ErrDuplicateKey", func() {
			_, err := s.db.Exec(`CREATE TABLE users (name TEXT PRIMARY KEY)`)
			So(err, ShouldBeNil)

			_, err = s.Insert(ctx, "users", map[string]any{"name": "michael"})
			So(err, ShouldBeNil)

			_, err = s.Insert(ctx, "users", map[string]any{"name": "michael"})
			So(errors.Is(err, backend.ErrDuplicateKey), ShouldBeTrue)
		})
	})
}

func TestNewSQLWithOptions(t *testing.T) {
	Convey("测试 NewSQLWithOptions 方法", t, func() {
		Convey("nil 选项报错", func() {
			_, err := NewSQLWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("不支持的驱动报错", func() {
			_, err := NewSQLWithOptions(&SQLOptions{Driver: "oracle"})
			So(err, ShouldNotBeNil)
		})
	})
}
