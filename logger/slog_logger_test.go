package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewSLogWithOptions(t *testing.T) {
	Convey("测试 NewSLogWithOptions 方法", t, func() {
		Convey("默认选项", func() {
			l, err := NewSLogWithOptions(nil)
			So(err, ShouldBeNil)
			So(l, ShouldNotBeNil)
		})

		Convey("非法级别报错", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Level: "verbose"})
			So(err, ShouldNotBeNil)
		})

		Convey("非法格式报错", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Format: "xml"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSLogOutput(t *testing.T) {
	Convey("测试 SLog 输出", t, func() {
		var buf bytes.Buffer
		l, err := NewSLogWithOptions(&SLogOptions{Level: "debug", Format: "json", Writer: &buf})
		So(err, ShouldBeNil)

		Convey("结构化字段", func() {
			l.Info("entity saved", "table", "posts", "id", 1)
			So(buf.String(), ShouldContainSubstring, `"table":"posts"`)
			So(buf.String(), ShouldContainSubstring, "entity saved")
		})

		Convey("级别过滤", func() {
			filtered, err := NewSLogWithOptions(&SLogOptions{Level: "error", Format: "text", Writer: &buf})
			So(err, ShouldBeNil)
			buf.Reset()
			filtered.Debug("should not appear")
			So(buf.String(), ShouldBeEmpty)
		})

		Convey("With 追加字段", func() {
			buf.Reset()
			l.With("component", "mapper").InfoContext(context.Background(), "query executed")
			lines := strings.TrimSpace(buf.String())
			So(lines, ShouldContainSubstring, `"component":"mapper"`)
		})
	})
}
