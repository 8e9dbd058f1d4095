package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/supportchat-server/internal/proto"
)

// inbound mirrors proto.Outbound with the payload kept raw for decoding.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", os.Getenv("SUPPORTCHAT_TOKEN"), "JWT issued by /api/auth/login")
	to := flag.Int64("to", 0, "receiver user id")
	flag.Parse()

	if *to <= 0 {
		return errors.New("-to must be a positive user id")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+url.QueryEscape(*token), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s, chatting with user %d\n", *addr, *to)
	fmt.Println("Type messages and press Enter to send; prefix with /img to send an image URL. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *to)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame inbound
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				log.Printf("server closed the connection: unauthorized")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch frame.Event {
		case proto.EventConnected:
			var evt proto.ConnectedData
			if err := json.Unmarshal(frame.Data, &evt); err == nil {
				fmt.Printf("* authenticated as user %d\n", evt.UserID)
			}
		case proto.EventNewMessage:
			var evt proto.NewMessageData
			if err := json.Unmarshal(frame.Data, &evt); err != nil {
				log.Printf("unmarshal new_message: %v", err)
				continue
			}
			fmt.Printf("[%s] #%d %d -> %d (%s): %s\n",
				evt.CreatedAt.Format("15:04:05"), evt.ID, evt.SenderID, evt.ReceiverID, evt.Type, evt.Content)
		case proto.EventMessageBlocked:
			var evt proto.MessageBlockedData
			if err := json.Unmarshal(frame.Data, &evt); err == nil {
				fmt.Printf("! blocked: %s %v\n", evt.Message, evt.MatchedWords)
			}
		case proto.EventChatError:
			var evt proto.ChatErrorData
			if err := json.Unmarshal(frame.Data, &evt); err == nil {
				fmt.Printf("! %s: %s\n", evt.Code, evt.Message)
			}
		default:
			fmt.Printf("event=%s data=%s\n", frame.Event, frame.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, to int64) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			msgType := "TEXT"
			if rest, found := strings.CutPrefix(text, "/img "); found {
				msgType, text = "IMAGE", strings.TrimSpace(rest)
			}

			payload, err := json.Marshal(proto.SendMessageData{ReceiverID: to, Content: text, Type: msgType})
			if err != nil {
				log.Printf("marshal msg: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.EventSendMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
