package server

import (
	"encoding/json"
	"net/http"

	"volume-screener/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			s.stateMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()
			return

		case client := <-s.register:
			// Send initial state on connect
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			client.send <- s.snapshotFor(client, "INITIAL")
			s.stateMutex.Unlock()

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestState = message
			for client := range s.clients {
				select {
				case client.send <- filteredState(message, client.subscription()):
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateAllDatas replaces the latest state without notifying clients and
// records the run in the history.
func (s *FastAPIServer) UpdateAllDatas(run *models.MScreeningRun) {
	if run == nil {
		return
	}
	state := latestDataFromRun(run, "UPDATE")

	s.stateMutex.Lock()
	s.latestState = state
	s.stateMutex.Unlock()

	s.history.Append(summaryFromState(state))
}

// -----------------------------------------------------------------------------

// Broadcast converts the run and queues it for the hub.
func (s *FastAPIServer) Broadcast(run *models.MScreeningRun) {
	if run == nil {
		return
	}
	state := latestDataFromRun(run, "UPDATE")

	select {
	case s.broadcast <- state:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------------------------

// LatestState returns a copy of the state served to new clients.
func (s *FastAPIServer) LatestState() models.MLatestData {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return *s.latestState
}

// snapshotFor must be called with stateMutex held.
func (s *FastAPIServer) snapshotFor(client *Client, kind string) *models.MLatestData {
	state := filteredState(s.latestState, client.subscription())
	state.Type = kind
	return state
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the
// filtered current state.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}
	client.setSubscription(cmd.Symbols)

	// send channels are closed by the hub under the write lock
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	if _, ok := s.clients[client]; !ok {
		return
	}

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- s.snapshotFor(client, "INITIAL"):
	default:
		s.Logger.Warning("Client send buffer full, dropping subscribe response")
	}
}
