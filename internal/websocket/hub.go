package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"bms/internal/models"
	"bms/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Conn adalah bagian dari *websocket.Conn yang dipakai Hub.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client merepresentasikan klien WebSocket milik satu user.
type Client struct {
	UserID int
	Conn   Conn
	Mu     sync.Mutex
}

// Event adalah pesan yang dikirim ke klien saat meeting berubah.
type Event struct {
	Event   string         `json:"event"`
	Meeting models.Meeting `json:"meeting"`
}

type envelope struct {
	recipients map[int]struct{}
	payload    []byte
}

// Hub mengelola koneksi WebSocket dan meneruskan event meeting ke
// creator dan peserta meeting tersebut.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client

	done chan struct{}
}

// NewHub membuat instance Hub baru.
func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan envelope, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Publish mengirim event ke Hub tanpa menunggu. Event dibuang jika
// antrian penuh.
func (h *Hub) Publish(event string, meeting models.Meeting) {
	payload, err := json.Marshal(Event{Event: event, Meeting: meeting})
	if err != nil {
		logger.ErrorLogger.Error("Error encoding meeting event", zap.Error(err))
		return
	}
	recipients := map[int]struct{}{meeting.CreatorID: {}}
	for _, id := range meeting.Participants {
		recipients[id] = struct{}{}
	}
	select {
	case h.Broadcast <- envelope{recipients: recipients, payload: payload}:
	default:
		logger.SystemLogger.Warn("Meeting event dropped", zap.String("event", event), zap.Int("meeting_id", meeting.ID))
	}
}

// Run menjalankan loop Hub sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.Clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
		case client := <-h.Unregister:
			h.drop(client)
		case msg := <-h.Broadcast:
			for client := range h.Clients {
				if _, ok := msg.recipients[client.UserID]; !ok {
					continue
				}
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, msg.payload)
				client.Mu.Unlock()
				if err != nil {
					// Unregister dari dalam loop akan deadlock.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		client.Conn.Close()
	}
}

// Join mendaftarkan client. Mengembalikan false jika Hub sudah berhenti.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave melepas client. Tidak memblokir setelah Hub berhenti.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Handler mendaftarkan koneksi untuk user yang sudah diautentikasi
// (c.Locals("userID")) lalu menahan koneksi sampai klien menutupnya.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		userID, _ := c.Locals("userID").(int)
		client := &Client{UserID: userID, Conn: c}
		if !h.Join(client) {
			return
		}
		defer h.Leave(client)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}
}
