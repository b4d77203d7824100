// Package main runs a demo WebSocket client for a property's sync events.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event,omitempty"`
}

func main() {
	property := flag.String("property", "prop-1", "property id")
	channel := flag.String("channel", "", "channel to sync once connected; empty syncs every enabled channel")
	kind := flag.String("kind", "availability", "sync kind")
	token := flag.String("token", os.Getenv("API_TOKEN"), "bearer token")
	flag.Parse()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	hdr := http.Header{}
	if *token != "" {
		hdr.Set("Authorization", "Bearer "+*token)
	}

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/properties/" + *property + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s %s", m.Type, string(m.Event))
		}
	}()

	// Trigger a sync so there is something to see
	time.Sleep(300 * time.Millisecond)
	path := fmt.Sprintf("/v1/properties/%s/sync?kind=%s", *property, *kind)
	if *channel != "" {
		path = fmt.Sprintf("/v1/properties/%s/channels/%s/sync?kind=%s", *property, *channel, *kind)
	}
	req, _ := http.NewRequest(http.MethodPost, "http://localhost:"+port+path, nil)
	req.Header = hdr.Clone()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("sync request: %s", resp.Status)

	// Wait briefly to receive a few messages
	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
}
