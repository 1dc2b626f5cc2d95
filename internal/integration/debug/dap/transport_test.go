package dap

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"
)

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	msg := &Message{Content: []byte(`{"test": "value"}`)}

	if err := writeMessage(&buf, msg); err != nil {
		t.Fatalf("write message: %v", err)
	}

	result := buf.String()
	if !strings.HasPrefix(result, "Content-Length: 17\r\n\r\n") {
		t.Errorf("unexpected header: %q", result)
	}
	if !strings.HasSuffix(result, `{"test": "value"}`) {
		t.Errorf("unexpected content: %q", result)
	}
}

func TestReadMessage(t *testing.T) {
	input := "Content-Length: 17\r\n\r\n{\"test\": \"value\"}"
	msg, err := readMessage(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(msg.Content, &parsed); err != nil {
		t.Fatalf("unmarshal content: %v", err)
	}
	if parsed["test"] != "value" {
		t.Errorf("expected 'value', got '%s'", parsed["test"])
	}
}

func TestReadMessageBadHeader(t *testing.T) {
	input := "Content-Size: 2\r\n\r\n{}"
	if _, err := readMessage(bufio.NewReader(strings.NewReader(input))); err == nil {
		t.Error("expected error for malformed header")
	}
}

func TestReadMessageTruncated(t *testing.T) {
	input := "Content-Length: 100\r\n\r\n{}"
	if _, err := readMessage(bufio.NewReader(strings.NewReader(input))); err == nil {
		t.Error("expected error for truncated content")
	}
}

func TestReadMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	for _, body := range []string{`{"seq":1}`, `{"seq":2}`} {
		if err := writeMessage(&buf, &Message{Content: []byte(body)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	r := bufio.NewReader(&buf)
	for i, want := range []string{`{"seq":1}`, `{"seq":2}`} {
		msg, err := readMessage(r)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if string(msg.Content) != want {
			t.Errorf("message %d: got %s, want %s", i, msg.Content, want)
		}
	}
}

func TestSocketTransportRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	st := NewSocketTransportFromConn(client)
	defer st.Close()

	peer := NewRawTransport(server)

	done := make(chan error, 1)
	go func() {
		done <- st.Send(&Message{Content: []byte(`{"type":"request"}`)})
	}()

	got, err := peer.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(got.Content) != `{"type":"request"}` {
		t.Errorf("unexpected content %s", got.Content)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("send did not complete")
	}
}
