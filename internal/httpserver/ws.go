package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"tradelab/internal/auth"
	"tradelab/internal/marketdata"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler streams quote events for symbols the client subscribed to.
// Protocol: client sends {type:"subscribe", symbol}, server acknowledges
// with {type:"subscribed", symbol} and starts forwarding that symbol's
// quotes. The server pings on an interval and drops peers that stop
// answering.
type WSHandler struct {
	bus        *marketdata.Bus
	authSvc    *auth.Service
	origin     string
	pingPeriod time.Duration
	log        *logrus.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(bus *marketdata.Bus, authSvc *auth.Service, origin string, pingPeriod time.Duration, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		bus:        bus,
		authSvc:    authSvc,
		origin:     origin,
		pingPeriod: pingPeriod,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	// allow localhost and 127.0.0.1 interchangeably for development
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

type wsClientMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol,omitempty"`
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.SessionToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	h.log.WithField("user_id", userID).Debug("ws connected")

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	var mu sync.Mutex
	subscribed := make(map[string]struct{})

	conn.SetReadDeadline(time.Now().Add(h.pingPeriod * 2))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.pingPeriod * 2))
		return nil
	})

	acks := make(chan marketdata.Event, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg wsClientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				continue
			}
			symbol := strings.ToUpper(strings.TrimSpace(msg.Symbol))
			switch strings.ToLower(strings.TrimSpace(msg.Type)) {
			case "subscribe":
				if symbol == "" {
					continue
				}
				mu.Lock()
				subscribed[symbol] = struct{}{}
				mu.Unlock()
				select {
				case acks <- marketdata.Event{Type: "subscribed", Symbol: symbol}:
				default:
				}
			case "unsubscribe":
				mu.Lock()
				if symbol == "" {
					subscribed = make(map[string]struct{})
				} else {
					delete(subscribed, symbol)
				}
				mu.Unlock()
			}
		}
	}()

	pinger := time.NewTicker(h.pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case evt := <-sub:
			if evt.Type == "quote" {
				mu.Lock()
				_, want := subscribed[evt.Symbol]
				mu.Unlock()
				if !want {
					continue
				}
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case ack := <-acks:
			if err := conn.WriteJSON(ack); err != nil {
				return
			}
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
