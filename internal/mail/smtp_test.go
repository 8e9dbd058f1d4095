package mail

import (
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type received struct {
	from string
	to   string
	data string
}

// serveSMTP accepts one session and speaks just enough SMTP for a plain
// unauthenticated delivery.
func serveSMTP(t *testing.T) (string, int, <-chan received) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan received, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		var got received
		_ = tp.PrintfLine("220 localhost ready")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case "MAIL":
				got.from = line
				_ = tp.PrintfLine("250 OK")
			case "RCPT":
				got.to = line
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				got.data = string(body)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				out <- got
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p, out
}

func TestSMTPMailerSend(t *testing.T) {
	req := require.New(t)
	host, port, out := serveSMTP(t)

	m := NewSMTPMailer(5 * time.Second)
	err := m.Send(context.Background(),
		Settings{Host: host, Port: port, From: "support@example.com"},
		Message{To: "alice@example.com", Subject: "Register code", Body: "Your code is 123456."},
	)
	req.NoError(err)

	select {
	case got := <-out:
		req.Contains(got.from, "<support@example.com>")
		req.Contains(got.to, "<alice@example.com>")
		req.Contains(got.data, "Subject: Register code")
		req.Contains(got.data, "Your code is 123456.")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func TestSMTPMailerRequiresRecipient(t *testing.T) {
	err := NewSMTPMailer(time.Second).Send(context.Background(), Settings{Host: "127.0.0.1", Port: 25}, Message{})
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestSMTPMailerDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	err = NewSMTPMailer(time.Second).Send(context.Background(),
		Settings{Host: "127.0.0.1", Port: addr.Port, From: "a@example.com"},
		Message{To: "b@example.com"},
	)
	require.ErrorContains(t, err, "dial")
}

func TestComposeUsesCRLF(t *testing.T) {
	raw := string(compose("a@example.com", Message{To: "b@example.com", Subject: "s", Body: "one\ntwo"}))
	require.True(t, strings.HasSuffix(raw, "one\r\ntwo\r\n"))
	require.Contains(t, raw, "\r\n\r\n")
}
