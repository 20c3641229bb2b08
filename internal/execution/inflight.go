package execution

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrDuplicateInFlight 同一 key 在 TTL 窗口内已有未完成的请求。
var ErrDuplicateInFlight = errors.New("duplicate in-flight")

// InFlightDeduper 提供短时间窗口内的确定性去重。
//
// 系统容忍偶发的重复/过期订单（对账机制会纠正），但同一个 tick 内
// 重复提交同一意图纯属浪费，这里用确定性 map 去重而不是位图，
// 避免哈希冲突造成误跳过下单。
type InFlightDeduper struct {
	ttl time.Duration

	mu sync.Mutex
	m  map[string]time.Time // key -> expiresAt
}

func NewInFlightDeduper(ttl time.Duration) *InFlightDeduper {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &InFlightDeduper{ttl: ttl, m: make(map[string]time.Time)}
}

// TryAcquire 尝试获取 key 的 in-flight 令牌；重复返回 ErrDuplicateInFlight。
func (d *InFlightDeduper) TryAcquire(key string) error {
	if d == nil || key == "" {
		return nil
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	// 惰性清理过期项
	for k, exp := range d.m {
		if !exp.After(now) {
			delete(d.m, k)
		}
	}
	if exp, ok := d.m[key]; ok && exp.After(now) {
		return ErrDuplicateInFlight
	}
	d.m[key] = now.Add(d.ttl)
	return nil
}

// Release 提前释放 key（允许更快再次进入）。
func (d *InFlightDeduper) Release(key string) {
	if d == nil || key == "" {
		return
	}
	d.mu.Lock()
	delete(d.m, key)
	d.mu.Unlock()
}
