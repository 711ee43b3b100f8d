// internal/web/websocket.go - Live status transition feed
package web

import (
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/gorilla/websocket"
    "github.com/sirupsen/logrus"

    "beacon/internal/alerting"
    "beacon/internal/database"
)

var upgrader = websocket.Upgrader{
    CheckOrigin: func(r *http.Request) bool {
        return true // Allow all origins in development
    },
}

type WSMessage struct {
    Type string      `json:"type"`
    Data interface{} `json:"data"`
}

type WSClient struct {
    conn   *websocket.Conn
    send   chan WSMessage
    server *Server
}

func (s *Server) handleWebSocket(c *gin.Context) {
    conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
    if err != nil {
        logrus.WithError(err).Error("Failed to upgrade websocket")
        return
    }

    client := &WSClient{
        conn:   conn,
        send:   make(chan WSMessage, 256),
        server: s,
    }

    s.wsMu.Lock()
    s.wsClients[client] = true
    s.wsMu.Unlock()
    s.metrics.RecordWebSocketConnection(1)

    go client.writePump()
    go client.readPump()
}

func (c *WSClient) writePump() {
    ticker := time.NewTicker(54 * time.Second)
    defer func() {
        ticker.Stop()
        c.conn.Close()
        c.server.removeClient(c)
    }()

    for {
        select {
        case message, ok := <-c.send:
            c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
            if !ok {
                c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }

            if err := c.conn.WriteJSON(message); err != nil {
                return
            }

        case <-ticker.C:
            c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
            if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}

func (c *WSClient) readPump() {
    defer c.conn.Close()

    c.conn.SetReadLimit(512)
    c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    c.conn.SetPongHandler(func(string) error {
        c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
        return nil
    })

    for {
        _, _, err := c.conn.ReadMessage()
        if err != nil {
            break
        }
    }
}

func (s *Server) removeClient(c *WSClient) {
    s.wsMu.Lock()
    if _, ok := s.wsClients[c]; ok {
        delete(s.wsClients, c)
        s.metrics.RecordWebSocketConnection(-1)
    }
    s.wsMu.Unlock()
}

func (s *Server) broadcast(message WSMessage) {
    s.wsMu.Lock()
    defer s.wsMu.Unlock()

    for client := range s.wsClients {
        select {
        case client.send <- message:
        default:
            close(client.send)
            delete(s.wsClients, client)
            s.metrics.RecordWebSocketConnection(-1)
        }
    }
}

// broadcastTransition pushes a committed status transition to every
// connected client.
func (s *Server) broadcastTransition(ep *database.Endpoint, oldStatus, newStatus string, at time.Time) {
    s.broadcast(WSMessage{
        Type: "status_change",
        Data: gin.H{
            "endpoint_id": ep.ID,
            "name":        ep.Name,
            "url":         ep.URL,
            "old_status":  oldStatus,
            "new_status":  newStatus,
            "severity":    alerting.SeverityFor(oldStatus, newStatus),
            "timestamp":   at.UTC().Format(time.RFC3339),
        },
    })
}
