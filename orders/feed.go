package orders

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"sufra/middleware"
	"sufra/models"
	"sufra/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Client is one open feed connection, pinned to a branch room.
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	Room   string
	UserID string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans order events out to dashboard connections, one room per branch.
// Room "all" receives every event.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	once       sync.Once
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.Room]; conns != nil && conns[c] {
				delete(conns, c)
				close(c.Send)
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.Room], c)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for room, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and closes every open connection's send channel.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.quit) })
}

// Broadcast pushes data to every client in a room.
func (h *Hub) Broadcast(room string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
	case <-h.quit:
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// feedAllowed reports whether the caller may watch a branch feed.
func feedAllowed(claims *middleware.Claims) bool {
	for _, role := range claims.Role {
		if role == models.RoleSuperAdmin || role == models.RoleBranchAdmin {
			return true
		}
	}
	return false
}

// ServeFeed upgrades a dashboard connection onto the order feed. The token
// travels as a query parameter because browsers cannot set headers on
// websocket dials. Room is the branch id, or "all".
func ServeFeed(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := middleware.ValidateJWT("Bearer " + r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !feedAllowed(claims) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		room := ps.ByName("branchid")
		if room != "all" {
			if _, err := strconv.Atoi(room); err != nil {
				http.Error(w, "Bad branch id", http.StatusBadRequest)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("feed upgrade:", err)
			return
		}
		client := &Client{
			Conn:   conn,
			Send:   make(chan []byte, 256),
			Room:   room,
			UserID: claims.UserID,
		}

		hub.register <- client
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// readPump only watches for the peer going away; the feed is one-directional.
func readPump(c *Client, hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// StartOrderFeed pipes published order events into the hub until ctx ends.
func StartOrderFeed(ctx context.Context, hub *Hub) {
	events, closeSub := mq.Subscribe(ctx)
	go func() {
		defer func() { _ = closeSub() }()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					log.Println("feed marshal:", err)
					continue
				}
				hub.Broadcast(strconv.Itoa(event.BranchID), data)
				hub.Broadcast("all", data)
			case <-ctx.Done():
				return
			}
		}
	}()
}
