package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"hiresync/internal/logger"
	"hiresync/internal/services"
	chatservice "hiresync/internal/services/chat"
	"hiresync/internal/services/dto"
	"hiresync/internal/validator"
	"hiresync/pkg/apperrors"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// Client - одно websocket-подключение. Его ID служит контекстом просмотра
// для потока сообщений.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan OutgoingWSMessage

	ctx    context.Context
	cancel context.CancelFunc

	Manager *WebSocketManager

	// sub принадлежит readPump: только он открывает и закрывает подписку
	sub  *chatservice.Subscription
	feed *services.Feed

	closeOnce sync.Once
}

func newClient(ctx context.Context, manager *WebSocketManager, conn *websocket.Conn, connID, userID string) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		ID:      connID,
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan OutgoingWSMessage, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		Manager: manager,
	}
}

// start регистрирует клиента и запускает насосы. Лента уведомлений
// открывается до первого чтения, поэтому пользователь сразу локальный.
func (c *Client) start() error {
	feed, err := c.Manager.notifications.OpenFeed(c.ctx, c.UserID)
	if err != nil {
		return err
	}
	c.feed = feed

	c.Manager.register <- c

	go c.writePump()
	go c.feedPump()
	go c.readPump()
	return nil
}

// close разрывает соединение; readPump завершится и выполнит очистку.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.Conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.closeThread()
		if c.feed != nil {
			c.feed.Close()
		}
		c.close()
		select {
		case c.Manager.unregister <- c:
		case <-time.After(time.Second):
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws read error", "conn_id", c.ID, "error", err)
			}
			return
		}

		msg, err := validator.DecodeRecord[IncomingWSMessage](msgBytes)
		if err != nil {
			c.reply(errorFrame(frameError(err)))
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", "conn_id", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// feedPump отправляет клиенту изменения ленты уведомлений диффами.
func (c *Client) feedPump() {
	// первый кадр - вся лента целиком, даже пустая
	last := c.feed.Snapshot()
	c.reply(notificationsFrame(services.DiffSnapshots(nil, last)))

	push := func(snap *services.FeedSnapshot) {
		if snap.Version <= last.Version {
			return
		}
		if diff := services.DiffSnapshots(last, snap); !diff.Empty() {
			c.reply(notificationsFrame(diff))
		}
		last = snap
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case snap := <-c.feed.Updates():
			push(snap)
		}
	}
}

// reply ставит кадр в очередь записи. Если клиент не успевает читать,
// подключение закрывается.
func (c *Client) reply(msg OutgoingWSMessage) {
	select {
	case c.Send <- msg:
	case <-c.ctx.Done():
	default:
		logger.Warn("ws client too slow, disconnecting", "conn_id", c.ID, "user_id", c.UserID)
		c.close()
	}
}

// Централизованный обработчик
func (c *Client) handleMessage(msg IncomingWSMessage) {
	switch msg.Action {
	case ActionOpenThread:
		payload, err := validator.DecodeRecord[openThreadPayload](msg.Data)
		if err != nil {
			c.reply(errorFrame(frameError(err)))
			return
		}
		c.openThread(payload.ThreadID)

	case ActionCloseThread:
		c.closeThread()
		c.reply(OutgoingWSMessage{Type: FrameThreadClosed})

	case ActionSendMessage:
		payload, err := validator.DecodeRecord[sendMessagePayload](msg.Data)
		if err != nil {
			c.reply(errorFrame(frameError(err)))
			return
		}
		message, err := c.Manager.messenger.Send(c.ctx, dto.SendMessageRequest{
			ThreadID: payload.ThreadID,
			SenderID: c.UserID,
			Body:     payload.Body,
		})
		if err != nil {
			c.reply(errorFrame(err))
			return
		}
		c.reply(OutgoingWSMessage{Type: FrameMessageSent, Data: dto.NewMessageResponse(message, c.UserID)})
	}
}

// openThread переключает подключение на другой чат: старая подписка
// отменяется до открытия новой.
func (c *Client) openThread(threadID string) {
	c.closeThread()

	sub, err := c.Manager.stream.Subscribe(c.ctx, chatservice.SubscribeRequest{
		ViewContext: c.ID,
		ThreadID:    threadID,
		ViewerID:    c.UserID,
	})
	if err != nil {
		c.reply(errorFrame(err))
		return
	}
	c.sub = sub
	go c.batchPump(sub)
}

func (c *Client) closeThread() {
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
}

func (c *Client) batchPump(sub *chatservice.Subscription) {
	for batch := range sub.Batches() {
		if batch.Err != nil {
			c.reply(errorFrame(batch.Err))
			continue
		}
		c.reply(messagesFrame(dto.NewMessageBatchResponse(batch.ThreadID, batch.Messages, c.UserID)))
	}
}

func frameError(err error) error {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return apperrors.ValidationError(ve.Errors)
	}
	return apperrors.NewBadRequestError("Invalid frame: " + err.Error())
}
