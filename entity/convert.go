package entity

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// 支持的序列化格式
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
)

// ErrUnknownFormat 不支持的序列化格式
var ErrUnknownFormat = errors.New("unknown format")

// To 按指定格式序列化实体，字段顺序与插入顺序一致
func (e *Entity) To(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return e.MarshalJSON()
	case FormatYAML:
		return e.ToYAML()
	case FormatMsgpack:
		return e.ToMsgpack()
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "format %q", format)
}

// MarshalJSON 手工拼装 JSON 对象以保持字段顺序
func (e *Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal field name %s", field)
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(e.data[field])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal field %s", field)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToYAML 通过 yaml.Node 保持字段顺序
func (e *Entity) ToYAML() ([]byte, error) {
	node, err := e.yamlNode()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func (e *Entity) yamlNode() (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, field := range e.fields {
		keyNode := &yaml.Node{}
		keyNode.SetString(field)
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(e.data[field]); err != nil {
			return nil, errors.Wrapf(err, "failed to encode field %s", field)
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

// ToMsgpack 按插入顺序编码 msgpack map
func (e *Entity) ToMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(len(e.fields)); err != nil {
		return nil, errors.WithStack(err)
	}
	for _, field := range e.fields {
		if err := enc.EncodeString(field); err != nil {
			return nil, errors.WithStack(err)
		}
		if err := enc.Encode(e.data[field]); err != nil {
			return nil, errors.Wrapf(err, "failed to encode field %s", field)
		}
	}
	return buf.Bytes(), nil
}

// Collection 一次检索返回的实体集合，外层顺序与检索顺序一致
type Collection []*Entity

// Data 返回每个实体的数据拷贝
func (c Collection) Data() []map[string]any {
	result := make([]map[string]any, 0, len(c))
	for _, e := range c {
		result = append(result, e.Data())
	}
	return result
}

// To 按指定格式序列化集合
func (c Collection) To(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return c.MarshalJSON()
	case FormatYAML:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range c {
			item, err := e.yamlNode()
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, item)
		}
		return yaml.Marshal(node)
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		if err := enc.EncodeArrayLen(len(c)); err != nil {
			return nil, errors.WithStack(err)
		}
		for _, e := range c {
			item, err := e.ToMsgpack()
			if err != nil {
				return nil, err
			}
			buf.Write(item)
		}
		return buf.Bytes(), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "format %q", format)
}

// MarshalJSON 序列化为 JSON 数组，元素字段顺序与插入顺序一致
func (c Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		item, err := e.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
