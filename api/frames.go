package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/xiaoshicae/xvision/capture"
	"github.com/xiaoshicae/xvision/xlog"
	"github.com/xiaoshicae/xvision/xutil"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	minFrameInterval = 100 * time.Millisecond
)

func deadline() time.Time {
	return time.Now().Add(writeWait)
}

// streamFrames 按间隔推送 PNG 二进制帧，?interval=毫秒 覆盖配置，?region=x,y,w,h 裁剪
func (s *Server) streamFrames(c *gin.Context) {
	region, err := parseRegion(c.Query("region"))
	if err != nil {
		fail(c, err)
		return
	}
	interval := xutil.ToDuration(s.agent.Config().FrameInterval)
	if q := c.Query("interval"); q != "" {
		interval = xutil.ToDuration(q)
	}
	interval = max(interval, minFrameInterval)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		xlog.Warn(c.Request.Context(), "upgrade websocket failed, err=[%v]", err)
		return
	}
	s.track(conn)

	ctx, cancel := context.WithCancel(context.Background())
	go s.readPump(conn, cancel)
	go s.writePump(ctx, conn, interval, func(ctx context.Context) ([]byte, error) {
		f, err := s.agent.Capture(ctx)
		if err != nil {
			return nil, err
		}
		data, _, _, err := capture.EncodePNG(f, region)
		return data, err
	})
}

func (s *Server) track(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// readPump 只处理 pong 与关闭，客户端断开时取消推送
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		s.untrack(conn)
		_ = conn.Close()
	}()
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				xlog.Warn(context.Background(), "frame stream read failed, err=[%v]", err)
			}
			return
		}
	}
}

// writePump 截图失败时发送文本错误并继续，写失败即退出
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, interval time.Duration, next func(context.Context) ([]byte, error)) {
	frames := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		frames.Stop()
		ping.Stop()
		_ = conn.Close()
	}()

	send := func() error {
		data, err := next(ctx)
		_ = conn.SetWriteDeadline(deadline())
		if err != nil {
			return conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
		}
		return conn.WriteMessage(websocket.BinaryMessage, data)
	}
	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-frames.C:
			if err := send(); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(deadline())
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
