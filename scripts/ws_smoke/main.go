package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wiremap-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	id := flag.String("id", "smoke-tester", "participant id")
	name := flag.String("name", "Smoke Tester", "display name")
	lat := flag.Float64("lat", 52.52, "starting latitude")
	lng := flag.Float64("lng", 13.405, "starting longitude")
	steps := flag.Int("steps", 3, "number of location updates to send")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between updates")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	go func() {
		for {
			var outbound proto.Outbound
			if err := wsjson.Read(ctx, conn, &outbound); err != nil {
				return
			}
			printOutbound(outbound)
		}
	}()

	for i := 0; i < *steps; i++ {
		stepLat := *lat + float64(i)*0.001
		stepLng := *lng + float64(i)*0.001
		payload, err := json.Marshal(proto.LocationData{
			ID:   *id,
			Name: *name,
			Lat:  &stepLat,
			Lng:  &stepLng,
		})
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendLocation, Data: payload}); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		select {
		case <-time.After(*interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func printOutbound(outbound proto.Outbound) {
	fmt.Printf("Received outbound: type=%s", outbound.Type)
	if outbound.Event != "" {
		fmt.Printf(" event=%s", outbound.Event)
	}
	if outbound.Error != nil {
		fmt.Printf(" error=%s:%s", outbound.Error.Code, outbound.Error.Msg)
	}
	if outbound.Data != nil {
		data, _ := json.Marshal(outbound.Data)
		fmt.Printf(" data=%s", data)
	}
	fmt.Println()
}
