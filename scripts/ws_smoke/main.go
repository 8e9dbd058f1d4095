package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/supportchat-server/internal/proto"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", os.Getenv("SUPPORTCHAT_TOKEN"), "JWT issued by /api/auth/login")
	to := flag.Int64("to", 1, "receiver user id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+url.QueryEscape(*token), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	sent := false
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received event=%s data=%s\n", f.Event, f.Data)

		switch f.Event {
		case proto.EventConnected:
			if sent {
				continue
			}
			payload, marshalErr := json.Marshal(proto.SendMessageData{ReceiverID: *to, Content: *text, Type: "TEXT"})
			if marshalErr != nil {
				return fmt.Errorf("marshal send_message: %w", marshalErr)
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.EventSendMessage, Data: payload}); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			sent = true
		case proto.EventNewMessage:
			var evt proto.NewMessageData
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal new_message: %w", err)
			}
			fmt.Printf("Delivered: id=%d %d -> %d content=%q\n", evt.ID, evt.SenderID, evt.ReceiverID, evt.Content)
			return nil
		case proto.EventMessageBlocked:
			var evt proto.MessageBlockedData
			_ = json.Unmarshal(f.Data, &evt)
			return fmt.Errorf("message blocked: %v", evt.MatchedWords)
		case proto.EventChatError:
			var evt proto.ChatErrorData
			_ = json.Unmarshal(f.Data, &evt)
			return fmt.Errorf("chat error %s: %s", evt.Code, evt.Message)
		}
	}
}
