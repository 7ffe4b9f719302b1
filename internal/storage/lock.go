package storage

import "sync"

// pathLocks 为每个逻辑路径维护一把带引用计数的互斥锁，无人持有时回收。
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*entryLock)}
}

func (p *pathLocks) lock(key string) func() {
	p.mu.Lock()
	lock := p.locks[key]
	if lock == nil {
		lock = &entryLock{}
		p.locks[key] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		p.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

// lockPair 按固定顺序获取两把锁，避免交叉 move 时死锁。
func (p *pathLocks) lockPair(a, b string) func() {
	if a == b {
		return p.lock(a)
	}
	if b < a {
		a, b = b, a
	}
	unlockA := p.lock(a)
	unlockB := p.lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}

// held 返回当前仍在使用的锁数量，仅供测试观察回收情况。
func (p *pathLocks) held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
