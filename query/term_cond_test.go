package query

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTermCondType(t *testing.T) {
	Convey("测试 TermCond Type 方法", t, func() {
		c := &TermCond{Field: "status", Value: "active"}
		So(c.Type(), ShouldEqual, CondTypeTerm)
	})
}

func TestTermCondToSQL(t *testing.T) {
	Convey("测试 TermCond ToSQL 方法", t, func() {
		Convey("字符串值", func() {
			c := &TermCond{Field: "status", Value: "active"}
			sql, args, err := c.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "status = ?")
			So(args, ShouldResemble, []interface{}{"active"})
		})

		Convey("数字值", func() {
			c := &TermCond{Field: "age", Value: 25}
			sql, args, err := c.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "age = ?")
			So(args, ShouldResemble, []interface{}{25})
		})

		Convey("nil 值转为 IS NULL", func() {
			c := &TermCond{Field: "deleted_at", Value: nil}
			sql, args, err := c.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "deleted_at IS NULL")
			So(args, ShouldBeEmpty)
		})
	})
}

func TestTermCondToMongo(t *testing.T) {
	Convey("测试 TermCond ToMongo 方法", t, func() {
		c := &TermCond{Field: "status", Value: "active"}
		result, err := c.ToMongo()
		So(err, ShouldBeNil)
		So(result, ShouldResemble, map[string]interface{}{"status": "active"})
	})
}

func TestTermCondMatch(t *testing.T) {
	Convey("测试 TermCond Match 方法", t, func() {
		Convey("相等匹配", func() {
			c := &TermCond{Field: "status", Value: "active"}
			So(c.Match(map[string]any{"status": "active"}), ShouldBeTrue)
			So(c.Match(map[string]any{"status": "inactive"}), ShouldBeFalse)
			So(c.Match(map[string]any{}), ShouldBeFalse)
		})

		Convey("数字类型宽松比较", func() {
			c := &TermCond{Field: "age", Value: 25}
			So(c.Match(map[string]any{"age": int64(25)}), ShouldBeTrue)
			So(c.Match(map[string]any{"age": 25.0}), ShouldBeTrue)
			So(c.Match(map[string]any{"age": 26}), ShouldBeFalse)
		})

		Convey("nil 值匹配缺失或为 nil 的字段", func() {
			c := &TermCond{Field: "deleted_at", Value: nil}
			So(c.Match(map[string]any{}), ShouldBeTrue)
			So(c.Match(map[string]any{"deleted_at": nil}), ShouldBeTrue)
			So(c.Match(map[string]any{"deleted_at": "2023-01-01"}), ShouldBeFalse)
		})
	})
}
