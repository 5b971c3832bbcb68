package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quote-chart-go/record"
)

const (
	DefaultWSBuffer     = 4096
	DefaultMinBackoff   = 200 * time.Millisecond
	DefaultMaxBackoff   = 5 * time.Second
	DefaultReadDeadline = 30 * time.Second
)

// EventSink 结构化事件输出。
type EventSink func(string, map[string]interface{})

// WSSource 连接推送式报价源，缓存收到的记录；每个 tick 的 GetData 取走缓存。
// Run 负责连接与断线重连，GetData 从不阻塞在网络上。
type WSSource struct {
	URL          string
	Dialer       *websocket.Dialer
	MaxBuffer    int
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	ReadDeadline time.Duration
	Sink         EventSink

	mu        sync.Mutex
	buf       []record.Raw
	dropped   int
	connected bool
	dials     int
}

// NewWSSource 使用默认参数。
func NewWSSource(url string) *WSSource {
	return &WSSource{
		URL:          url,
		Dialer:       websocket.DefaultDialer,
		MaxBuffer:    DefaultWSBuffer,
		MinBackoff:   DefaultMinBackoff,
		MaxBackoff:   DefaultMaxBackoff,
		ReadDeadline: DefaultReadDeadline,
	}
}

// GetData 取走当前缓存的全部记录；无数据时返回空批次。
func (s *WSSource) GetData(ctx context.Context) ([]record.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf
	s.buf = nil
	return out, nil
}

// Connected 当前是否持有连接。
func (s *WSSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Dropped 缓存溢出丢弃的记录数。
func (s *WSSource) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Run 连接并读取直到 ctx 取消；断线后按指数退避重连。
func (s *WSSource) Run(ctx context.Context) error {
	if s.URL == "" {
		return errors.New("ws url required")
	}
	backoff := s.minBackoff()
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = s.minBackoff()
		}
		s.logEvent("source_disconnected", map[string]interface{}{
			"url":       s.URL,
			"error":     errString(err),
			"backoffMs": backoff.Milliseconds(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if ceiling := s.maxBackoff(); backoff > ceiling {
			backoff = ceiling
		}
	}
}

// session 一次连接的生命周期；connected 表示拨号成功，调用方据此重置退避。
func (s *WSSource) session(ctx context.Context) (connected bool, err error) {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	s.setConnected(true)
	defer s.setConnected(false)
	s.logEvent("source_connected", map[string]interface{}{"url": s.URL})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		if d := s.ReadDeadline; d > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(d))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		recs, err := DecodeRecords(msg)
		if err != nil {
			s.logEvent("source_decode_error", map[string]interface{}{"error": err.Error()})
			continue
		}
		s.push(recs)
	}
}

func (s *WSSource) push(recs []record.Raw) {
	if len(recs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, recs...)
	if limit := s.MaxBuffer; limit > 0 && len(s.buf) > limit {
		over := len(s.buf) - limit
		s.dropped += over
		s.buf = append([]record.Raw(nil), s.buf[over:]...)
	}
}

func (s *WSSource) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	if v {
		s.dials++
	}
	s.mu.Unlock()
}

// Dials 成功建立连接的次数。
func (s *WSSource) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *WSSource) minBackoff() time.Duration {
	if s.MinBackoff > 0 {
		return s.MinBackoff
	}
	return DefaultMinBackoff
}

func (s *WSSource) maxBackoff() time.Duration {
	if s.MaxBackoff > 0 {
		return s.MaxBackoff
	}
	return DefaultMaxBackoff
}

func (s *WSSource) logEvent(event string, fields map[string]interface{}) {
	if s.Sink == nil {
		return
	}
	s.Sink(event, fields)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
