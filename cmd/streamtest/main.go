// streamtest connects to a running relay's price stream and prints events
// to the console.
// Usage: go run ./cmd/streamtest --url ws://localhost:8000/stream/prices --symbols AAPL,MSFT
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/model"
)

type controlMessage struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

type serverMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
	model.Event
}

func main() {
	url := flag.String("url", "ws://localhost:8000/stream/prices", "relay stream URL")
	symbols := flag.String("symbols", "AAPL,MSFT,BINANCE:BTCUSDT", "comma-separated symbols to subscribe to")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := connection.DefaultClientConfig()
	cfg.URL = *url
	client := connection.NewClient(cfg, logger)

	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "url", *url, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	subs := model.NormalizeSymbols(strings.Split(*symbols, ","))
	sub, _ := json.Marshal(controlMessage{Action: "subscribe", Symbols: subs})
	if err := client.Send(sub); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}
	logger.Info("subscribed - press Ctrl+C to stop", "symbols", subs)

	var trades int
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete", "trades", trades, "elapsed", time.Since(start).Round(time.Second))
			return

		case err := <-client.Errors():
			logger.Error("stream closed", "error", err)
			os.Exit(1)

		case msg := <-client.Messages():
			if *verbose {
				fmt.Printf("[RAW] %s\n", msg.Data)
				continue
			}

			var m serverMessage
			if err := json.Unmarshal(msg.Data, &m); err != nil {
				logger.Warn("unparseable message", "error", err, "data", string(msg.Data))
				continue
			}

			switch m.Type {
			case "ready":
				fmt.Printf("[READY] client_id=%s\n", m.ClientID)
			case "error":
				fmt.Printf("[ERROR] %s\n", m.Message)
			case model.EventTypeTrade:
				trades++
				volume := "-"
				if m.Volume != nil {
					volume = fmt.Sprintf("%g", *m.Volume)
				}
				fmt.Printf("[TRADE] symbol=%s price=%g volume=%s ts=%s source=%s\n",
					m.Symbol, m.Price, volume,
					time.UnixMilli(m.Timestamp).Format(time.RFC3339Nano), m.Source)
			default:
				fmt.Printf("[%s] %s\n", strings.ToUpper(m.Type), msg.Data)
			}
		}
	}
}
