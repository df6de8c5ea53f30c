package httpserver

import (
	"fmt"
	"log"
	"net/http"
	"sync"
)

// TelemetryHub fans telemetry messages out to stream subscribers. Slow
// subscribers miss messages rather than block the publisher.
type TelemetryHub struct {
	mutex   sync.Mutex
	clients map[chan []byte]struct{}
}

func NewTelemetryHub() *TelemetryHub {
	return &TelemetryHub{clients: make(map[chan []byte]struct{})}
}

// Subscribe registers a buffered channel. The returned func unregisters and
// closes it.
func (h *TelemetryHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mutex.Lock()
	h.clients[ch] = struct{}{}
	h.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mutex.Lock()
			delete(h.clients, ch)
			close(ch)
			h.mutex.Unlock()
		})
	}
}

func (h *TelemetryHub) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *TelemetryHub) Broadcast(msg []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// client is blocked, skip
		}
	}
}

// ServeSSE streams telemetry as server-sent events until the client goes away.
func (h *TelemetryHub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages, cancel := h.Subscribe()
	defer cancel()
	log.Println("added telemetry SSE client")

	for {
		select {
		case <-r.Context().Done():
			log.Println("removed telemetry SSE client")
			return
		case msg, open := <-messages:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
