package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tkoeppen/taskwire/comm/inproc"

	_ "github.com/tkoeppen/taskwire/comm/tcp"
)

// startServer runs a server with the standard test ops on the given
// listen address and returns its contact address
func startServer(t *testing.T, listenAddr string) string {
	t.Helper()

	config := DefaultServerConfig()
	config.ListenAddr = listenAddr
	config.WorkersPerConn = 4

	s := NewServer(config)
	s.Handle("echo", func(ctx context.Context, msg Message) (Message, error) {
		return Message{"status": "ok", "result": msg["data"]}, nil
	})
	s.Handle("fail", func(ctx context.Context, msg Message) (Message, error) {
		return nil, fmt.Errorf("handler exploded")
	})
	s.Handle("slow", func(ctx context.Context, msg Message) (Message, error) {
		time.Sleep(20 * time.Millisecond)
		return Message{"status": "ok"}, nil
	})

	if err := s.Serve(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(s.Close)
	return s.Addr()
}

// TestEchoOverTransports tests a full request/response round trip over
// every registered transport
func TestEchoOverTransports(t *testing.T) {
	transports := map[string]string{
		"tcp":    "tcp://127.0.0.1:0",
		"inproc": inproc.NewAddress(),
	}

	for name, listenAddr := range transports {
		t.Run(name, func(t *testing.T) {
			addr := startServer(t, listenAddr)

			client := NewClient(DefaultClientConfig())
			defer client.Close()

			resp, err := client.SendRecv(context.Background(), addr, Message{
				"op":   "echo",
				"data": []byte("hello"),
			})
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if resp["status"] != "ok" {
				t.Errorf("Wrong status: %+v", resp)
			}
			if !bytes.Equal(resp["result"].([]byte), []byte("hello")) {
				t.Errorf("Echo payload doesn't match: %+v", resp["result"])
			}
		})
	}
}

// TestHandlerError tests that a handler failure reaches the client as
// an error carrying the handler's message
func TestHandlerError(t *testing.T) {
	addr := startServer(t, inproc.NewAddress())

	config := DefaultClientConfig()
	config.Retries = 1
	client := NewClient(config)
	defer client.Close()

	_, err := client.SendRecv(context.Background(), addr, Message{"op": "fail"})
	if err == nil {
		t.Fatal("Expected the handler error to surface")
	}
	if !strings.Contains(err.Error(), "handler exploded") {
		t.Errorf("Error should carry the handler's message: %v", err)
	}
}

// TestUnknownOp tests dispatch of an unregistered operation
func TestUnknownOp(t *testing.T) {
	addr := startServer(t, inproc.NewAddress())

	config := DefaultClientConfig()
	config.Retries = 1
	client := NewClient(config)
	defer client.Close()

	_, err := client.SendRecv(context.Background(), addr, Message{"op": "nope"})
	if err == nil || !strings.Contains(err.Error(), "unknown op") {
		t.Fatalf("Expected an unknown-op error, got %v", err)
	}
}

// TestConcurrentRequests tests many clients hammering the bounded
// worker pool at once
func TestConcurrentRequests(t *testing.T) {
	addr := startServer(t, "tcp://127.0.0.1:0")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			client := NewClient(DefaultClientConfig())
			defer client.Close()
			for j := 0; j < 5; j++ {
				resp, err := client.SendRecv(context.Background(), addr, Message{"op": "slow"})
				if err != nil {
					errs <- fmt.Errorf("client %d request %d: %w", n, j, err)
					return
				}
				if resp["status"] != "ok" {
					errs <- fmt.Errorf("client %d request %d: bad status %+v", n, j, resp)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// TestSendNoReply tests fire-and-forget delivery
func TestSendNoReply(t *testing.T) {
	received := make(chan Message, 1)

	config := DefaultServerConfig()
	config.ListenAddr = inproc.NewAddress()
	s := NewServer(config)
	s.Handle("note", func(ctx context.Context, msg Message) (Message, error) {
		received <- msg
		return Message{"status": "ok"}, nil
	})
	if err := s.Serve(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer s.Close()

	client := NewClient(DefaultClientConfig())
	defer client.Close()

	if err := client.Send(context.Background(), s.Addr(), Message{"op": "note"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case msg := <-received:
		if Op(msg) != "note" {
			t.Errorf("Wrong op received: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Server never received the message")
	}
}

// TestClientRetry tests that the client retries when the server only
// comes up after the first attempt
func TestClientRetry(t *testing.T) {
	config := DefaultClientConfig()
	config.Retries = 2
	config.ConnectTimeout = 100 * time.Millisecond
	client := NewClient(config)
	defer client.Close()

	_, err := client.SendRecv(context.Background(), inproc.NewAddress(), Message{"op": "echo"})
	if err == nil {
		t.Fatal("Expected request to an unbound address to fail")
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("Error should report the attempt count: %v", err)
	}
}

// TestContextCancel tests that a cancelled context aborts SendRecv
func TestContextCancel(t *testing.T) {
	client := NewClient(DefaultClientConfig())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SendRecv(ctx, inproc.NewAddress(), Message{"op": "echo"})
	if err == nil {
		t.Fatal("Expected cancelled request to fail")
	}
	if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Error should reflect the cancellation: %v", err)
	}
}
