package mapper

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// KeyGeneratorOptions 主键生成选项
type KeyGeneratorOptions struct {
	// UUID 版本：v1, v4, v6, v7
	Version string `cfg:"version" def:"v4"`

	// 是否包含中划线连字符，默认不包含
	WithHyphens bool `cfg:"withHyphens"`
}

// KeyGenerator 为缺少主键的插入生成字符串主键
type KeyGenerator struct {
	version     string
	withHyphens bool
}

func NewKeyGeneratorWithOptions(options *KeyGeneratorOptions) *KeyGenerator {
	if options == nil {
		options = &KeyGeneratorOptions{Version: "v4"}
	}
	if options.Version == "" {
		options.Version = "v4"
	}

	return &KeyGenerator{
		version:     options.Version,
		withHyphens: options.WithHyphens,
	}
}

func (g *KeyGenerator) Generate() string {
	var u uuid.UUID
	switch g.version {
	case "v1":
		u, _ = uuid.NewUUID()
	case "v4":
		u = uuid.New()
	case "v6":
		u = uuid.Must(uuid.NewV6())
	case "v7":
		u = uuid.Must(uuid.NewV7())
	default:
		u = uuid.New()
	}

	if g.withHyphens {
		return u.String()
	}

	// 直接将字节转换为十六进制字符串，避免字符串替换
	return hex.EncodeToString(u[:])
}
