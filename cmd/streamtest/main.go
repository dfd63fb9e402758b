// streamtest dials an engine stream endpoint and prints pushed
// snapshots to the console, answering heartbeats with periodic pings.
//
// Usage:
//
//	go run ./cmd/streamtest -addr localhost:8080 -channel ticker -symbol BTCUSDT
//	go run ./cmd/streamtest -channel candles -symbol ETHUSDT -interval 4h
//	go run ./cmd/streamtest -channel events -duration 5m
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/crypto-data/internal/broadcast"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "engine host:port")
	channel := flag.String("channel", "ticker", "stream kind: ticker, orderbook, candles, or events")
	symbol := flag.String("symbol", "BTCUSDT", "trading symbol")
	interval := flag.String("interval", "", "candle interval (candles channel only)")
	duration := flag.Duration("duration", 0, "exit after this long (0 = run until interrupted)")
	pingEvery := flag.Duration("ping", 10*time.Second, "liveness probe interval")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	u := url.URL{Scheme: "ws", Host: *addr}
	if *channel == "events" {
		u.Path = "/ws/events"
	} else {
		u.Path = fmt.Sprintf("/ws/%s/%s", *channel, *symbol)
		if *interval != "" {
			u.RawQuery = "interval=" + *interval
		}
	}

	logger.Info("dialing", "url", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Error("dial failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	done := make(chan struct{})

	// Reader
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				logger.Info("connection closed", "error", err)
				return
			}
			printMessage(data, *verbose)
		}
	}()

	// Liveness probes keep the session turning between heartbeats
	go func() {
		ticker := time.NewTicker(*pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timer := time.NewTimer(*duration)
		defer timer.Stop()
		timeout = timer.C
	}

	logger.Info("streaming - press Ctrl+C to stop")
	select {
	case <-done:
	case <-sigCh:
		logger.Info("interrupted")
	case <-timeout:
		logger.Info("duration elapsed")
	}

	// Close frame so the session deregisters promptly
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func printMessage(data []byte, verbose bool) {
	if string(data) == "pong" {
		fmt.Println("[PONG]")
		return
	}

	var env broadcast.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" || env.Timestamp == "" {
		// Not an envelope; collector events arrive as plain JSON
		fmt.Printf("[RAW] %s\n", data)
		return
	}

	switch {
	case verbose:
		pretty, _ := json.MarshalIndent(env, "", "  ")
		fmt.Printf("[%s] %s\n", strings.ToUpper(env.Type), pretty)
	case env.Type == "heartbeat":
		fmt.Printf("[HEARTBEAT] %s\n", env.Timestamp)
	default:
		fmt.Printf("[%s] %s %s\n", strings.ToUpper(env.Type), env.Timestamp, env.Data)
	}
}
