package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/mapx/query"
)

// 集成测试需要可用的 MongoDB 实例，通过 MONGO_TEST_URI 指定，
// 例如 mongodb://localhost:27017/testdb
func newTestMongo(t *testing.T) *Mongo {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	m, err := NewMongoWithOptions(&MongoOptions{
		URI:      uri,
		Database: "testdb",
		Timeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return m
}

func build(options query.Options) *query.Descriptor {
	d, err := query.Build(options)
	So(err, ShouldBeNil)
	return d
}

func TestMongoCRUD(t *testing.T) {
	m := newTestMongo(t)
	defer m.Close()
	ctx := context.Background()

	Convey("测试 Mongo 后端", t, func() {
		_, _ = m.database.Collection("posts").DeleteMany(ctx, map[string]any{})

		for _, row := range []map[string]any{
			{"pid": 1, "author": "michael", "title": "First Post", "views": 10},
			{"pid": 2, "author": "michael", "title": "Second Post", "views": 30},
			{"pid": 3, "author": "john", "title": "Hello", "views": 20},
		} {
			id, err := m.Insert(ctx, "posts", row)
			So(err, ShouldBeNil)
			So(id, ShouldNotBeNil)
		}

		Convey("条件查询", func() {
			rows, err := m.Query(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": "michael"},
			}))
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("排序和分页", func() {
			rows, err := m.Query(ctx, "posts", build(query.Options{
				"order": query.Order{Field: "views", Direction: "DESC"},
				"limit": 2,
			}))
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0]["views"], ShouldEqual, 30)
		})

		Convey("Count", func() {
			count, err := m.Count(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": "john"},
			}))
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})

		Convey("UpdateByKey", func() {
			ok, err := m.UpdateByKey(ctx, "posts", map[string]any{"pid": 1}, map[string]any{"title": "Updated"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			ok, err = m.UpdateByKey(ctx, "posts", map[string]any{"pid": 99}, map[string]any{"title": "x"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("DeleteByKey 幂等", func() {
			ok, err := m.DeleteByKey(ctx, "posts", map[string]any{"pid": 2})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			ok, err = m.DeleteByKey(ctx, "posts", map[string]any{"pid": 2})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("DeleteByQuery", func() {
			ok, err := m.DeleteByQuery(ctx, "posts", build(query.Options{
				"conditions": map[string]any{"author": "michael"},
			}))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})
	})
}
