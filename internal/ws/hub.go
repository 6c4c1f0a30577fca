package ws

import "sync"

// Hub fans loan event payloads out to the sessions watching each channel.
// Channels follow the "loan:events:<loanID>" naming and exist only while at
// least one session is subscribed.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: map[string]map[*Client]struct{}{}}
}

// Subscribe registers the session on a channel, creating the channel on
// first use.
func (h *Hub) Subscribe(channel string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[channel]; !ok {
		h.subscribers[channel] = map[*Client]struct{}{}
	}
	h.subscribers[channel][client] = struct{}{}
	client.addChannel(channel)
}

// UnsubscribeAll detaches a closing session from every loan channel it
// watches, dropping channels left without subscribers.
func (h *Hub) UnsubscribeAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channel := range client.listChannels() {
		if subs, ok := h.subscribers[channel]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscribers, channel)
			}
		}
	}
}

// Publish delivers a loan event payload to every current subscriber of the
// channel. Delivery is best effort: sessions that cannot keep up are closed
// rather than allowed to stall the stream.
func (h *Hub) Publish(channel string, payload []byte) {
	h.mu.RLock()
	subs := h.subscribers[channel]
	h.mu.RUnlock()

	for c := range subs {
		c.send(payload)
	}
}
