package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Cho phép kết nối từ mọi nguồn
	},
}

// WebSocketManager phát snapshot bảng chỗ đỗ tới mọi client. Đây là kênh
// Subscribe của frontend: mỗi lần trạng thái chỗ đỗ thay đổi, toàn bộ bảng
// được gửi lại và client thay thế state cũ.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 16),
	}
}

func (wsm *WebSocketManager) Start() {
	for {
		select {
		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			wsm.mutex.Unlock()
			log.Printf("WebSocket client connected. Total: %d", len(wsm.clients))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			wsm.mutex.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", len(wsm.clients))

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				err := client.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					log.Printf("Error writing to WebSocket client: %v", err)
					client.Close()
					delete(wsm.clients, client)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// BroadcastSpotSnapshot implements service.SnapshotBroadcaster. Không bao giờ
// block caller: channel đầy thì bỏ message, snapshot kế tiếp sẽ bù lại.
func (wsm *WebSocketManager) BroadcastSpotSnapshot(spots []domain.Spot) {
	notification := domain.SpotSnapshotNotification{
		Type:      domain.SnapshotMessageType,
		Spots:     spots,
		Timestamp: time.Now().UTC(),
	}
	message, err := json.Marshal(notification)
	if err != nil {
		log.Printf("Error marshaling spot snapshot: %v", err)
		return
	}

	select {
	case wsm.broadcast <- message:
	default:
		log.Println("Broadcast channel is full, dropping message")
	}
}

type WebSocketHandler struct {
	wsManager      *WebSocketManager
	bookingService *service.BookingService
}

func NewWebSocketHandler(wsManager *WebSocketManager, bs *service.BookingService) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager, bookingService: bs}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	// Gửi snapshot hiện tại ngay khi kết nối để client không phải chờ tới
	// lần thay đổi trạng thái kế tiếp.
	if spots, err := h.bookingService.CurrentSnapshot(c.Request.Context()); err == nil {
		notification := domain.SpotSnapshotNotification{
			Type:      domain.SnapshotMessageType,
			Spots:     spots,
			Timestamp: time.Now().UTC(),
		}
		if message, err := json.Marshal(notification); err == nil {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Error writing initial snapshot: %v", err)
			}
		}
	} else {
		log.Printf("Lỗi khi đọc snapshot ban đầu: %v", err)
	}

	h.wsManager.register <- conn

	// Keep connection alive và handle disconnect
	go func() {
		defer func() {
			h.wsManager.unregister <- conn
		}()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				break
			}
		}
	}()
}
