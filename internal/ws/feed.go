// Package ws pushes drawn results to websocket subscribers.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"racebet/internal/models"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
)

type resultEvent struct {
	Period    int64     `json:"period"`
	Positions []int     `json:"positions"`
	Strategy  string    `json:"strategy"`
	DrawnAt   time.Time `json:"drawn_at"`
}

// ResultFeed fans drawn results out to connected clients. A slow client
// drops events rather than stalling the draw pipeline.
type ResultFeed struct {
	Logger *zap.Logger

	mu   sync.Mutex
	subs map[chan resultEvent]bool
}

func NewResultFeed(logger *zap.Logger) *ResultFeed {
	return &ResultFeed{
		Logger: logger,
		subs:   map[chan resultEvent]bool{},
	}
}

func (f *ResultFeed) Register(r *gin.Engine) {
	r.GET("/ws/results", f.serve)
}

// Broadcast queues the result for every subscriber, dropping it for any
// whose buffer is full.
func (f *ResultFeed) Broadcast(result models.Result) {
	if f == nil {
		return
	}
	p := result.Positions()
	ev := resultEvent{
		Period:    result.Period,
		Positions: p[:],
		Strategy:  result.Strategy,
		DrawnAt:   result.CreatedAt,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			if f.Logger != nil {
				f.Logger.Warn("result feed subscriber lagging, event dropped",
					zap.Int64("period", result.Period))
			}
		}
	}
}

func (f *ResultFeed) serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		if f.Logger != nil {
			f.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := f.subscribe()
	defer f.unsubscribe(ch)

	// Write-only endpoint: CloseRead keeps control frames flowing and cancels
	// the context when the client goes away.
	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (f *ResultFeed) subscribe() chan resultEvent {
	ch := make(chan resultEvent, subscriberBuffer)
	f.mu.Lock()
	f.subs[ch] = true
	f.mu.Unlock()
	return ch
}

func (f *ResultFeed) unsubscribe(ch chan resultEvent) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}
