package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/core/usecases"
	"github.com/samirrijal/digipin/internal/pkg/digipin"
	"github.com/samirrijal/digipin/internal/pkg/metrics"
)

const wsTurnTimeout = 60 * time.Second

// wsFrame is sent to the client after every turn.
type wsFrame struct {
	Type    string             `json:"type"` // "reply" | "error"
	Reply   *domain.AgentReply `json:"reply,omitempty"`
	Code    string             `json:"code,omitempty"`
	Message string             `json:"message,omitempty"`
}

// AgentWebSocketHandler returns a handler that runs agent turns over a
// WebSocket. Clients send JSON: {"message":"...","context":{...}} and receive
// one frame per message. Turns on a connection run one at a time.
func AgentWebSocketHandler(agent *usecases.AgentService) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		if !agent.Ready() {
			_ = writeJSON(errorFrame(domain.ErrAgentUnavailable))
			return
		}

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var req domain.AgentRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				_ = writeJSON(wsFrame{Type: "error", Code: "bad_request", Message: "invalid JSON"})
				continue
			}

			turnCtx, turnCancel := context.WithTimeout(ctx, wsTurnTimeout)
			reply, err := agent.Respond(turnCtx, req)
			turnCancel()

			if err != nil {
				_ = writeJSON(errorFrame(err))
				continue
			}
			if err := writeJSON(wsFrame{Type: "reply", Reply: reply}); err != nil {
				break
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}

func errorFrame(err error) wsFrame {
	switch {
	case digipin.IsValidationError(err):
		return wsFrame{Type: "error", Code: "bad_request", Message: err.Error()}
	case errors.Is(err, domain.ErrAgentUnavailable):
		return wsFrame{Type: "error", Code: "service_unavailable", Message: err.Error()}
	case errors.Is(err, domain.ErrModel):
		slog.Error("ws agent turn failed", "error", err)
		return wsFrame{Type: "error", Code: "bad_gateway", Message: "language model request failed"}
	default:
		slog.Error("ws agent turn failed", "error", err)
		return wsFrame{Type: "error", Code: "internal_error", Message: "internal error"}
	}
}
