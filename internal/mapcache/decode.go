package mapcache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"au-electorates/internal/model"
)

const gzSuffix = ".gz"

// Document：解码后的 GeoJSON 边界文档
// 约束：Raw 为解压后的原始 JSON，调用方只读；Type 仅为 Feature 或 FeatureCollection。
type Document struct {
	Entry    string          `json:"entry"`
	Type     string          `json:"type"`
	Features int             `json:"features"`
	Raw      json.RawMessage `json:"-"`
}

// MarshalJSON 直接输出原始 GeoJSON，便于 HTTP 层透传
func (d *Document) MarshalJSON() ([]byte, error) { return d.Raw, nil }

type header struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// 文档注释：解码边界条目
// 背景：条目可能以 gzip 压缩存放（名称带 .gz），解压后只校验 GeoJSON 头部类型与要素数，不做几何计算。
// 约束：任何解压或解析失败都包装为 ErrCorruptEntry；类型大小写按 GeoJSON 规范严格匹配。
func decode(entry string, b []byte) (*Document, error) {
	if strings.HasSuffix(entry, gzSuffix) {
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrCorruptEntry, entry, err)
		}
		plain, err := io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrCorruptEntry, entry, err)
		}
		b = plain
	}
	var h header
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrCorruptEntry, entry, err)
	}
	doc := &Document{Entry: strings.TrimSuffix(entry, gzSuffix), Type: h.Type, Raw: b}
	switch h.Type {
	case "Feature":
		doc.Features = 1
	case "FeatureCollection":
		doc.Features = len(h.Features)
	default:
		return nil, fmt.Errorf("%w: %s: unexpected geojson type %q", model.ErrCorruptEntry, entry, h.Type)
	}
	return doc, nil
}
