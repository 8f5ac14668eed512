package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"taskdeck/taskdeck/broker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventStreamServiceInterface is the live event feed pushed to clients.
type EventStreamServiceInterface interface {
	Start()
	Stop()
	HandleConnection(c *gin.Context, userID uuid.UUID)
	SetInputChannel(ch <-chan broker.Message)
}

// ServerMessage is the envelope pushed to websocket clients.
type ServerMessage struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type streamClient struct {
	id     string
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

// EventStreamService subscribes to the broker's entity subjects and
// forwards each event to the connected clients owning it.
type EventStreamService struct {
	clients    map[string]*streamClient
	register   chan *streamClient
	unregister chan *streamClient
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	input    <-chan broker.Message

	running  bool
	stopChan chan struct{}
}

func NewEventStreamService() *EventStreamService {
	return &EventStreamService{
		clients:    make(map[string]*streamClient),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		stopChan: make(chan struct{}),
	}
}

// SetInputChannel overrides the broker subscription with a custom source.
func (s *EventStreamService) SetInputChannel(ch <-chan broker.Message) {
	s.input = ch
}

func (s *EventStreamService) Start() {
	if s.running {
		return
	}
	s.running = true

	if s.input == nil {
		ch, err := broker.Subscribe(broker.TaskEventsSubject, broker.UserEventsSubject)
		if err != nil {
			log.Printf("Event stream running without broker feed: %v", err)
		} else {
			s.input = ch
		}
	}

	go s.run()
	log.Println("Event stream service started")
}

func (s *EventStreamService) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)

	s.mu.Lock()
	for _, client := range s.clients {
		if client.conn != nil {
			client.conn.Close()
		}
	}
	s.mu.Unlock()

	log.Println("Event stream service stopped")
}

func (s *EventStreamService) run() {
	for {
		select {
		case <-s.stopChan:
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.id] = client
			s.mu.Unlock()
			log.Printf("Event stream client connected: %s (user: %s)", client.id, client.userID)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.id]; ok {
				delete(s.clients, client.id)
				close(client.send)
				log.Printf("Event stream client disconnected: %s", client.id)
			}
			s.mu.Unlock()

		case msg, ok := <-s.input:
			if !ok {
				log.Println("Broker feed closed, event stream will no longer receive events")
				s.input = nil
				continue
			}
			s.dispatch(msg)
		}
	}
}

// dispatch routes one broker message to the clients owning the event.
func (s *EventStreamService) dispatch(msg broker.Message) {
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Printf("Discarding malformed event on %s: %v", msg.Subject, err)
		return
	}
	ownerID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return
	}

	out, err := json.Marshal(ServerMessage{
		Type:    "event",
		Event:   msg.Subject,
		Payload: msg.Data,
	})
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		if client.userID != ownerID {
			continue
		}
		select {
		case client.send <- out:
		default:
			log.Printf("Event stream client %s is slow, dropping event", client.id)
		}
	}
}

// HandleConnection upgrades the request and serves the client until the
// socket closes. The caller has already been authenticated.
func (s *EventStreamService) HandleConnection(c *gin.Context, userID uuid.UUID) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := &streamClient{
		id:     uuid.New().String(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
	if !s.addClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s)
}

// addClient hands the client to the hub. A false return means the hub
// has stopped and the connection should be torn down by the caller.
func (s *EventStreamService) addClient(client *streamClient) bool {
	select {
	case s.register <- client:
		return true
	case <-s.stopChan:
		return false
	}
}

func (s *EventStreamService) removeClient(client *streamClient) {
	select {
	case s.unregister <- client:
	case <-s.stopChan:
	}
}

func (c *streamClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; it exists to notice disconnects.
func (c *streamClient) readPump(s *EventStreamService) {
	defer func() {
		s.removeClient(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var EventStreamServiceInstance EventStreamServiceInterface
