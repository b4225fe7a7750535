package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"maint-engine/backend/config"
)

// SubjectPrefix 所有变更事件主题的公共前缀
const SubjectPrefix = "maint."

// ── 事件主题 ──
const (
	SubjectMachinesChanged    = SubjectPrefix + "machines.changed"
	SubjectPartsChanged       = SubjectPrefix + "parts.changed"
	SubjectTechniciansChanged = SubjectPrefix + "technicians.changed"
	SubjectStockLow           = SubjectPrefix + "parts.stock_low"
)

// Feed 变更事件的发布订阅接口
// NATS 与进程内实现均满足该接口
type Feed interface {
	Publish(ctx context.Context, subj string, v any) error
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
	Close()
}

var errNilBus = errors.New("nil bus")

// Bus 基于 NATS JetStream 的事件总线
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// New 连接 NATS 并确保事件 stream 存在
func New(cfg *config.BusConfig, logger *zap.Logger, opts ...nats.Option) (*Bus, error) {
	opts = append([]nats.Option{nats.Name("maint-engine")}, opts...)
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("初始化 JetStream 失败: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("查询 stream 失败: %w", err)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{SubjectPrefix + ">"},
		}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("创建 stream 失败: %w", err)
		}
	}

	logger.Info("事件总线已连接", zap.String("url", cfg.URL), zap.String("stream", cfg.Stream))
	return &Bus{conn: nc, js: js, logger: logger}, nil
}

// Close 排空并关闭连接
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish 将 v 编码为 JSON 后发布到指定主题
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errNilBus
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, data, nats.Context(ctx))
	return err
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe 以 durable consumer 订阅主题，fn 返回错误时消息会被 Nak 重投
func (b *Bus) Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error) {
	if b == nil {
		return nil, errNilBus
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	handler := func(msg *nats.Msg) {
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		if err := fn(handlerCtx, msg.Data); err != nil {
			b.logger.Warn("事件处理失败，等待重投",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}

	sub, err := b.js.Subscribe(subj, handler, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, err
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}
