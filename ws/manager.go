package ws

import (
	"context"
	"sync"

	"hiresync/internal/logger"
	"hiresync/internal/services"
	chatservice "hiresync/internal/services/chat"
)

// WebSocketManager ведет реестр подключений. Каждое подключение - отдельный
// контекст просмотра: в нем открыт не более чем один чат.
type WebSocketManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	stream        chatservice.Stream
	messenger     chatservice.Messenger
	notifications services.NotificationService
}

func NewWebSocketManager(
	stream chatservice.Stream,
	messenger chatservice.Messenger,
	notifications services.NotificationService,
) *WebSocketManager {
	return &WebSocketManager{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		stream:        stream,
		messenger:     messenger,
		notifications: notifications,
	}
}

// Run обслуживает регистрацию до отмены ctx, затем закрывает все подключения.
func (manager *WebSocketManager) Run(ctx context.Context) {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.ID] = client
			total := len(manager.clients)
			manager.mu.Unlock()
			logger.Debug("ws client registered", "conn_id", client.ID, "user_id", client.UserID, "total", total)

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[client.ID]; ok {
				delete(manager.clients, client.ID)
			}
			total := len(manager.clients)
			manager.mu.Unlock()
			logger.Debug("ws client unregistered", "conn_id", client.ID, "user_id", client.UserID, "total", total)

		case <-ctx.Done():
			manager.mu.Lock()
			clients := make([]*Client, 0, len(manager.clients))
			for _, c := range manager.clients {
				clients = append(clients, c)
			}
			manager.clients = make(map[string]*Client)
			manager.mu.Unlock()

			for _, c := range clients {
				c.close()
			}
			logger.Info("ws manager stopped", "closed", len(clients))
			return
		}
	}
}

// GetClientCount возвращает количество подключений
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients)
}

// IsUserConnected проверяет, есть ли у пользователя хотя бы одно подключение
func (manager *WebSocketManager) IsUserConnected(userID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	for _, c := range manager.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
