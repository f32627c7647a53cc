package ws

import (
	"sync"
	"sync/atomic"

	"github.com/tokmz/qibot/pkg/onebot"
)

// pendingTable echo -> 完成通道
// 通道容量为 1，resolve 与 remove 都通过 LoadAndDelete 保证每个条目只被取走一次
type pendingTable struct {
	calls sync.Map // int64 -> chan *onebot.Response
	size  atomic.Int64
}

// register 生成未被占用的 echo 并登记
func (p *pendingTable) register() (int64, <-chan *onebot.Response) {
	ch := make(chan *onebot.Response, 1)
	for {
		echo := onebot.NewEcho()
		if _, loaded := p.calls.LoadOrStore(echo, ch); !loaded {
			p.size.Add(1)
			return echo, ch
		}
	}
}

// resolve 投递响应并移除条目，echo 不存在时返回 false
func (p *pendingTable) resolve(echo int64, resp *onebot.Response) bool {
	v, ok := p.calls.LoadAndDelete(echo)
	if !ok {
		return false
	}
	p.size.Add(-1)
	v.(chan *onebot.Response) <- resp
	return true
}

// remove 幂等移除
func (p *pendingTable) remove(echo int64) {
	if _, ok := p.calls.LoadAndDelete(echo); ok {
		p.size.Add(-1)
	}
}

func (p *pendingTable) has(echo int64) bool {
	_, ok := p.calls.Load(echo)
	return ok
}

func (p *pendingTable) len() int {
	return int(p.size.Load())
}
