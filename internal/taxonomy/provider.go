package taxonomy

import "sync/atomic"

// Provider 持有当前生效的分类表，支持热替换
type Provider struct {
	cur atomic.Pointer[Taxonomy]
}

// NewProvider 创建 Provider；t 为空时使用内置分类表
func NewProvider(t *Taxonomy) *Provider {
	if t == nil {
		t = Default()
	}
	p := &Provider{}
	p.cur.Store(t)
	return p
}

// Current 当前分类表
func (p *Provider) Current() *Taxonomy {
	return p.cur.Load()
}

// Swap 替换分类表，返回旧版本
func (p *Provider) Swap(t *Taxonomy) *Taxonomy {
	if t == nil {
		return p.cur.Load()
	}
	return p.cur.Swap(t)
}
