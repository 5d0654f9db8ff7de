package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/services"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPollInterval = 15 * time.Second
)

type WSHandler struct {
	evaluations services.EvaluationService
	redis       *redis.Client
	upgrader    websocket.Upgrader
}

// NewWSHandler streams live scores. Without Redis the handler falls back to
// polling the score service.
func NewWSHandler(evaluations services.EvaluationService, rdb *redis.Client, allowedOrigins []string) *WSHandler {
	allow := map[string]bool{}
	for _, o := range allowedOrigins {
		allow[o] = true
	}
	return &WSHandler{
		evaluations: evaluations,
		redis:       rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allow) == 0 || origin == "" || allow[origin]
			},
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeScores(sc *models.EvaluationScores) error {
	b, err := json.Marshal(models.ScoresMessage{Type: "scores", Scores: sc})
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (h *WSHandler) EvaluationWS(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	evaluationID := c.Param("id")

	// authorizes the caller and gives the client a first frame
	initial, err := h.evaluations.Scores(c.Request.Context(), caller, evaluationID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := wc.writeScores(initial); err != nil {
		return
	}

	// clients only send pings and close frames
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}()

	if h.redis == nil {
		h.poll(ctx, wc, caller, evaluationID, initial.Overall, readDone)
		return
	}

	pubsub := h.redis.Subscribe(ctx, models.ScoresChannel(evaluationID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	ping := time.NewTicker(wsReadTimeout / 2)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		case m, ok := <-ch:
			if !ok {
				return
			}
			// payload is already a ScoresMessage
			if err := wc.writeText([]byte(m.Payload)); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) poll(ctx context.Context, wc *wsConn, caller services.Caller, evaluationID string, last float64, done <-chan struct{}) {
	t := time.NewTicker(wsPollInterval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			sc, err := h.evaluations.Scores(ctx, caller, evaluationID)
			if err != nil {
				return
			}
			if sc.Overall == last {
				continue
			}
			last = sc.Overall
			if err := wc.writeScores(sc); err != nil {
				return
			}
		}
	}
}
