// Package admingate 保护管理接口：来源 IP/CIDR 白名单 + 可选共享令牌。
// 不依赖项目内部代码，可在其他服务中直接复用。
package admingate

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
)

// TokenHeader 携带管理令牌的请求头
const TokenHeader = "X-Admin-Token"

// Config：白名单与令牌配置
type Config struct {
	AllowIPs     []string
	AllowCIDRs   []string
	AllowLocal   bool
	RealIPHeader string
	Token        string
}

// 文档注释：管理接口门禁
// 背景：LoadAll 与导出等接口会触发全量解码或写盘，只对运维网段与本机开放。
// 约束：
// 1) 支持 IPv4/IPv6 单 IP 与 CIDR；非法条目忽略并记录告警；
// 2) 来源 IP 以 RemoteAddr 为准，配置 RealIPHeader 时取该头首个有效 IP；
// 3) 配置了 Token 时还需请求头 X-Admin-Token 完全一致（常量时间比较）；
// 4) 白名单为空且未允许本机时拒绝全部请求。
type Gate struct {
	l            *slog.Logger
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
	token        string
	mu           sync.RWMutex
}

// New 按配置构建门禁
func New(l *slog.Logger, cfg Config) *Gate {
	if l == nil {
		l = slog.Default()
	}
	g := &Gate{l: l, allowIPs: map[string]struct{}{}, realIPHeader: strings.TrimSpace(cfg.RealIPHeader), token: cfg.Token}
	for _, p := range cfg.AllowIPs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if ip := net.ParseIP(p); ip != nil {
			g.allowIPs[ip.String()] = struct{}{}
		} else {
			l.Warn("admin_gate_bad_ip", "value", p)
		}
	}
	g.AddCIDRs(cfg.AllowCIDRs...)
	if cfg.AllowLocal {
		g.allowIPs["127.0.0.1"] = struct{}{}
		g.allowIPs["::1"] = struct{}{}
	}
	return g
}

// NewFromEnv：按环境变量构建门禁
// 环境变量：
// ADMIN_ALLOW_IPS=1.2.3.4,5.6.7.8       允许的单 IP 列表（逗号分隔）
// ADMIN_ALLOW_CIDRS=10.0.0.0/8,...      允许的 CIDR 列表（逗号分隔，支持 v4/v6）
// ADMIN_ALLOW_LOCAL=true                允许 127.0.0.1/::1（默认 true）
// ADMIN_REAL_IP_HEADER=X-Forwarded-For  指定上游真实 IP 头（首个有效 IP 生效）
// ADMIN_TOKEN                           管理令牌（可选）
func NewFromEnv(l *slog.Logger) *Gate {
	return New(l, Config{
		AllowIPs:     splitList(os.Getenv("ADMIN_ALLOW_IPS")),
		AllowCIDRs:   splitList(os.Getenv("ADMIN_ALLOW_CIDRS")),
		AllowLocal:   os.Getenv("ADMIN_ALLOW_LOCAL") != "false",
		RealIPHeader: os.Getenv("ADMIN_REAL_IP_HEADER"),
		Token:        os.Getenv("ADMIN_TOKEN"),
	})
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// AddCIDRs：合并并去重追加的网段
func (g *Gate) AddCIDRs(cidrs ...string) {
	var add []*net.IPNet
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			g.l.Warn("admin_gate_bad_cidr", "value", c)
			continue
		}
		add = append(add, n)
	}
	g.mu.Lock()
	g.allowCIDRs = mergeCIDRs(g.allowCIDRs, add)
	g.mu.Unlock()
}

// Wrap：生成 http.Handler 中间件
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := g.extractIP(r)
		if ip == nil {
			g.l.Debug("admin_gate_block", "reason", "no_ip")
			write403(w)
			return
		}
		if !g.allowed(ip) {
			g.l.Debug("admin_gate_block", "ip", ip.String())
			write403(w)
			return
		}
		if g.token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(TokenHeader)), []byte(g.token)) != 1 {
			g.l.Debug("admin_gate_block", "ip", ip.String(), "reason", "token")
			write403(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) allowed(ip net.IP) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range g.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// extractIP：解析请求来源 IP；优先指定头的首个有效 IP
func (g *Gate) extractIP(r *http.Request) net.IP {
	if g.realIPHeader != "" {
		if raw := r.Header.Get(g.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func write403(w http.ResponseWriter) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
}

// mergeCIDRs：合并并去重 CIDR 列表
func mergeCIDRs(old, add []*net.IPNet) []*net.IPNet {
	seen := make(map[string]struct{}, len(old)+len(add))
	out := make([]*net.IPNet, 0, len(old)+len(add))
	for _, n := range append(append([]*net.IPNet(nil), old...), add...) {
		if _, ok := seen[n.String()]; ok {
			continue
		}
		seen[n.String()] = struct{}{}
		out = append(out, n)
	}
	return out
}
