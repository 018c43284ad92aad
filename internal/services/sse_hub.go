package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-insights-backend/internal/models"
)

// AlertNotifier receives alerts right after they are stored
type AlertNotifier interface {
	BroadcastAlert(alert *models.Alert)
}

// SSEHub manages Server-Sent Events connections for real-time alert streaming
type SSEHub struct {
	// Map of organization ids to client channels
	clients map[string]map[chan []byte]bool
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]map[chan []byte]bool),
	}
}

// RegisterClient registers a new SSE client for an organization
func (h *SSEHub) RegisterClient(orgID string) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientChan := make(chan []byte, 10)
	if h.clients[orgID] == nil {
		h.clients[orgID] = make(map[chan []byte]bool)
	}
	h.clients[orgID][clientChan] = true

	logrus.Infof("SSE client registered for organization %s (total clients: %d)", orgID, len(h.clients[orgID]))
	return clientChan
}

// UnregisterClient unregisters an SSE client
func (h *SSEHub) UnregisterClient(orgID string, clientChan chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[orgID] != nil {
		if _, ok := h.clients[orgID][clientChan]; ok {
			delete(h.clients[orgID], clientChan)
			close(clientChan)
		}
		if len(h.clients[orgID]) == 0 {
			delete(h.clients, orgID)
		}
	}

	logrus.Infof("SSE client unregistered for organization %s (remaining clients: %d)", orgID, len(h.clients[orgID]))
}

// BroadcastAlert sends an alert to every client of its organization
func (h *SSEHub) BroadcastAlert(alert *models.Alert) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.clients[alert.OrganizationID]
	if len(clients) == 0 {
		return
	}

	alertJSON, err := json.Marshal(alert)
	if err != nil {
		logrus.Errorf("Failed to marshal alert for SSE: %v", err)
		return
	}
	message := []byte(fmt.Sprintf("event: alert\ndata: %s\n\n", string(alertJSON)))

	// Send to all clients (non-blocking)
	for clientChan := range clients {
		select {
		case clientChan <- message:
		default:
			logrus.Warnf("SSE client channel full, skipping: %s", alert.OrganizationID)
		}
	}
}

// GetClientCount returns the number of clients for an organization
func (h *SSEHub) GetClientCount(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orgID])
}
