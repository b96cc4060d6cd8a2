package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/relabs-tech/env_monitor/internal/bme280"
)

// Snapshot is the driver state as seen after the last tick.
type Snapshot struct {
	Status  bme280.Status `json:"status"`
	State   string        `json:"state"`
	Address string        `json:"address,omitempty"`
	Stats   bme280.Stats  `json:"stats"`
	Updated time.Time     `json:"updated"`
}

// statusCache lets HTTP handlers read what the tick loop last saw. The
// driver itself is only touched by the tick loop.
type statusCache struct {
	mu   sync.RWMutex
	snap Snapshot
	have bool
}

func (c *statusCache) update(d *bme280.Driver, now time.Time) Snapshot {
	snap := Snapshot{
		Status:  d.Status(),
		State:   d.State().String(),
		Stats:   d.Stats(),
		Updated: now,
	}
	if a := d.Address(); a != 0 {
		snap.Address = fmt.Sprintf("0x%02X", a)
	}

	c.mu.Lock()
	c.snap = snap
	c.have = true
	c.mu.Unlock()
	return snap
}

func (c *statusCache) get() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.have
}

// ServeHTTP serves the latest snapshot as JSON.
func (c *statusCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, ok := c.get()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("status: json encode error: %v", err)
	}
}
