// 包 resolver：按全名或简称大小写不敏感地定位选区，并批量报告无法识别的名称
package resolver

import (
	"fmt"
	"strings"

	"au-electorates/internal/model"
)

// Resolver 在构建后只读，可被多个协程并发使用
type Resolver struct {
	index map[string]*model.Division
}

// 文档注释：构建名称索引
// 背景：全名与简称共享同一键空间，查询时任一命中即可。
// 约束：大小写不敏感下任意两个不同选区不得共享键（包括 A 的全名等于 B 的简称），否则返回 ErrDuplicateKey；
// 同一选区全名与简称相同是允许的。
func New(divisions []*model.Division) (*Resolver, error) {
	r := &Resolver{index: make(map[string]*model.Division, len(divisions)*2)}
	for _, d := range divisions {
		for _, raw := range []string{d.Name, d.ShortName} {
			k := key(raw)
			if strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("%w: division with blank name or short name", model.ErrMalformedRecord)
			}
			if prev, ok := r.index[k]; ok && prev != d {
				return nil, fmt.Errorf("%w: %q is used by both %q and %q", model.ErrDuplicateKey, raw, prev.Name, d.Name)
			}
			r.index[k] = d
		}
	}
	return r, nil
}

func key(name string) string { return strings.ToLower(name) }

// Find：按全名或简称定位选区；未命中返回 *model.DivisionNotFoundError
func (r *Resolver) Find(name string) (*model.Division, error) {
	if d, ok := r.TryFind(name); ok {
		return d, nil
	}
	return nil, &model.DivisionNotFoundError{Name: name}
}

// TryFind：同 Find，但以布尔值表示是否命中；空白名称视为未命中
func (r *Resolver) TryFind(name string) (*model.Division, bool) {
	if strings.TrimSpace(name) == "" {
		return nil, false
	}
	d, ok := r.index[key(name)]
	return d, ok
}

// ShortName：将任意可识别名称归一化为选区简称
func (r *Resolver) ShortName(name string) (string, bool) {
	d, ok := r.TryFind(name)
	if !ok {
		return "", false
	}
	return d.ShortName, true
}

// Invalid：返回无法识别的名称，保持原始顺序并保留重复项
func (r *Resolver) Invalid(names []string) []string {
	var out []string
	for _, n := range names {
		if _, ok := r.TryFind(n); !ok {
			out = append(out, n)
		}
	}
	return out
}

// Validate：全部可识别时返回 nil，否则一次性返回包含全部未识别名称的 *model.NamesNotFoundError
func (r *Resolver) Validate(names ...string) error {
	if missing := r.Invalid(names); len(missing) > 0 {
		return &model.NamesNotFoundError{Names: missing}
	}
	return nil
}

// Len 返回索引键数量
func (r *Resolver) Len() int { return len(r.index) }
