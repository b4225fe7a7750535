package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Local 进程内事件总线
// 未启用 NATS 时使用，投递为同步调用，处理失败只记录日志
type Local struct {
	mu     sync.RWMutex
	subs   map[string][]*localSub
	closed bool
	logger *zap.Logger
}

type localSub struct {
	ctx    context.Context
	fn     func(ctx context.Context, data []byte) error
	mu     sync.Mutex
	closed bool
}

func (s *localSub) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *localSub) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.ctx.Err() == nil
}

// NewLocal 创建进程内总线
func NewLocal(logger *zap.Logger) *Local {
	return &Local{subs: make(map[string][]*localSub), logger: logger}
}

// Publish 编码后同步投递给当前订阅者
func (l *Local) Publish(ctx context.Context, subj string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return errors.New("bus closed")
	}
	subs := append([]*localSub(nil), l.subs[subj]...)
	l.mu.RUnlock()

	for _, s := range subs {
		if !s.active() {
			continue
		}
		if err := s.fn(ctx, data); err != nil {
			l.logger.Warn("本地事件处理失败", zap.String("subject", subj), zap.Error(err))
		}
	}
	return nil
}

// Subscribe 注册订阅，durable 在进程内无意义
func (l *Local) Subscribe(ctx context.Context, subj, _ string, fn func(ctx context.Context, data []byte) error) (io.Closer, error) {
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.New("bus closed")
	}
	s := &localSub{ctx: ctx, fn: fn}
	l.subs[subj] = append(l.subs[subj], s)
	return s, nil
}

// Close 关闭总线，之后的发布与订阅都返回错误
func (l *Local) Close() {
	l.mu.Lock()
	l.closed = true
	l.subs = make(map[string][]*localSub)
	l.mu.Unlock()
}

var (
	_ Feed = (*Bus)(nil)
	_ Feed = (*Local)(nil)
)
