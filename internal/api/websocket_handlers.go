// internal/api/websocket_handlers.go
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "github.com/Corphon/LocalVoice/internal/errors"
	"github.com/Corphon/LocalVoice/internal/models"
)

// DraftWebSocket 草稿实时同步。同一用户的多个连接共享一份草稿，
// 任一连接的修改都会推送到全部连接
func (h *Handler) DraftWebSocket(c *gin.Context) {
	viewer := ViewerFromContext(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("草稿 WebSocket 升级失败", map[string]interface{}{
			"user_id": viewer.UserID,
			"error":   err.Error(),
		})
		return
	}

	updates, cancel, err := h.Drafts.Subscribe(viewer.UserID)
	if err != nil {
		conn.WriteJSON(errorFrame(apperrors.CodeOf(err), err.Error()))
		conn.Close()
		return
	}

	client := newWebSocketClient(conn, viewer.UserID)
	h.Sockets.register(client)
	defer func() {
		cancel()
		client.Close()
		h.Sockets.unregister(client)
	}()

	// 订阅通道首条即当前草稿，与后续推送同序写出
	go h.writePump(client, updates)

	h.readPump(c.Request.Context(), client)
}

// readPump 读取客户端操作直到连接断开
func (h *Handler) readPump(ctx context.Context, client *WebSocketClient) {
	client.conn.SetReadLimit(maxFrameSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !client.IsClosed() {
				h.Logger.Warn("草稿 WebSocket 异常断开", map[string]interface{}{
					"user_id": client.userID,
					"error":   err.Error(),
				})
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			client.Send(errorFrame(ErrorBadRequest, "malformed frame"))
			continue
		}
		h.handleFrame(ctx, client, frame)
	}
}

// handleFrame 执行一次客户端操作。修改成功后的草稿经由订阅推送，这里只回复错误
func (h *Handler) handleFrame(ctx context.Context, client *WebSocketClient, frame ClientFrame) {
	switch frame.Op {
	case OpGet:
		d, err := h.Drafts.Get(client.userID)
		if err != nil {
			client.Send(errorFrame(apperrors.CodeOf(err), err.Error()))
			return
		}
		client.Send(draftFrame(d))

	case OpUpdate, OpAppend:
		group := models.FieldGroup(frame.Group)
		var err error
		if frame.Op == OpUpdate {
			_, err = h.Drafts.UpdateField(client.userID, group, frame.Index, frame.Value)
		} else {
			_, err = h.Drafts.AppendField(client.userID, group)
		}
		if err != nil {
			client.Send(errorFrame(apperrors.CodeOf(err), err.Error()))
		}

	case OpSubmit:
		result, err := h.Drafts.Submit(ctx, client.userID)
		if err != nil {
			client.Send(errorFrame(ErrorPublishFailed, "publishing failed, please try again"))
			return
		}
		client.Send(ServerFrame{Type: FrameSubmitted, Result: &result, Timestamp: time.Now()})

	default:
		client.Send(errorFrame(ErrorUnknownOperation, "unknown operation: "+frame.Op))
	}
}

// writePump 串行写出回复、草稿推送和心跳
func (h *Handler) writePump(client *WebSocketClient, updates <-chan models.ArticleDraft) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case frame := <-client.send:
			if err := h.writeFrame(client, frame); err != nil {
				return
			}
		case d, ok := <-updates:
			if !ok {
				client.conn.SetWriteDeadline(time.Now().Add(writeWait))
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := h.writeFrame(client, draftFrame(d)); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}

func (h *Handler) writeFrame(client *WebSocketClient, frame ServerFrame) error {
	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteJSON(frame); err != nil {
		if !client.IsClosed() {
			h.Logger.Debug("草稿 WebSocket 写入失败", map[string]interface{}{
				"user_id": client.userID,
				"error":   err.Error(),
			})
		}
		return err
	}
	return nil
}
