package dap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu        sync.Mutex
	sendQueue []*Message
	recvChan  chan *Message
	closed    bool
	hungUp    bool
	sendErr   error
	onSend    func(*Message)
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		recvChan: make(chan *Message, 10),
	}
}

func (t *mockTransport) Send(msg *Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return io.ErrClosedPipe
	}
	if t.sendErr != nil {
		return t.sendErr
	}

	t.sendQueue = append(t.sendQueue, msg)
	if t.onSend != nil {
		t.onSend(msg)
	}
	return nil
}

func (t *mockTransport) Receive() (*Message, error) {
	msg, ok := <-t.recvChan
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

func (t *mockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.closed = true
		if !t.hungUp {
			close(t.recvChan)
		}
	}
	return nil
}

// hangUp ends the receive stream the way a crashed adapter does. Send keeps
// working.
func (t *mockTransport) hangUp() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed && !t.hungUp {
		t.hungUp = true
		close(t.recvChan)
	}
}

func (t *mockTransport) queue(v interface{}) {
	content, _ := json.Marshal(v)
	t.recvChan <- &Message{Content: content}
}

func (t *mockTransport) getSentMessages() []*Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Message{}, t.sendQueue...)
}

// respondWith answers every request using fn, which returns the body and
// success flag for a command.
func (t *mockTransport) respondWith(fn func(req Request) (interface{}, bool, string)) {
	t.onSend = func(msg *Message) {
		var req Request
		json.Unmarshal(msg.Content, &req)

		body, ok, message := fn(req)
		raw, _ := json.Marshal(body)
		t.queue(Response{
			ProtocolMessage: ProtocolMessage{Seq: 1000 + req.Seq, Type: "response"},
			RequestSeq:      req.Seq,
			Success:         ok,
			Command:         req.Command,
			Message:         message,
			Body:            raw,
		})
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientSendRequest(t *testing.T) {
	mt := newMockTransport()
	mt.respondWith(func(req Request) (interface{}, bool, string) {
		return struct{}{}, true, ""
	})

	client := NewClient(mt)
	defer client.Close()

	if err := client.ConfigurationDone(testContext(t)); err != nil {
		t.Fatalf("configurationDone: %v", err)
	}

	msgs := mt.getSentMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(msgs))
	}

	var req Request
	if err := json.Unmarshal(msgs[0].Content, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req.Command != "configurationDone" {
		t.Errorf("expected command 'configurationDone', got %s", req.Command)
	}
	if req.Type != "request" {
		t.Errorf("expected type 'request', got %s", req.Type)
	}
}

func TestClientInitialize(t *testing.T) {
	mt := newMockTransport()
	mt.respondWith(func(req Request) (interface{}, bool, string) {
		return Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsReadMemoryRequest:        true,
		}, true, ""
	})

	client := NewClient(mt)
	defer client.Close()

	caps, err := client.Initialize(testContext(t), InitializeRequestArguments{AdapterID: "gdb"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !caps.SupportsConfigurationDoneRequest || !caps.SupportsReadMemoryRequest {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
}

func TestClientRegisterRequests(t *testing.T) {
	mt := newMockTransport()
	mt.respondWith(func(req Request) (interface{}, bool, string) {
		switch req.Command {
		case "threads":
			return ThreadsResponseBody{Threads: []Thread{{ID: 1, Name: "main"}}}, true, ""
		case "stackTrace":
			var args StackTraceArguments
			json.Unmarshal(req.Arguments, &args)
			if args.ThreadID != 1 {
				return nil, false, "bad thread"
			}
			return StackTraceResponseBody{StackFrames: []StackFrame{{ID: 7, Name: "_start"}}}, true, ""
		case "scopes":
			return ScopesResponseBody{Scopes: []Scope{{Name: "Registers", VariablesReference: 3}}}, true, ""
		case "variables":
			return VariablesResponseBody{Variables: []Variable{{Name: "rax", Value: "0x2a"}}}, true, ""
		}
		return nil, false, "unsupported"
	})

	client := NewClient(mt)
	defer client.Close()
	ctx := testContext(t)

	threads, err := client.Threads(ctx)
	if err != nil || len(threads) != 1 {
		t.Fatalf("threads: %v %v", threads, err)
	}

	stack, err := client.StackTrace(ctx, StackTraceArguments{ThreadID: threads[0].ID})
	if err != nil || len(stack.StackFrames) != 1 {
		t.Fatalf("stackTrace: %v %v", stack, err)
	}

	scopes, err := client.Scopes(ctx, ScopesArguments{FrameID: stack.StackFrames[0].ID})
	if err != nil || len(scopes) != 1 {
		t.Fatalf("scopes: %v %v", scopes, err)
	}

	vars, err := client.Variables(ctx, VariablesArguments{VariablesReference: scopes[0].VariablesReference})
	if err != nil {
		t.Fatalf("variables: %v", err)
	}
	if len(vars) != 1 || vars[0].Name != "rax" || vars[0].Value != "0x2a" {
		t.Errorf("unexpected variables: %+v", vars)
	}
}

func TestClientRequestFailure(t *testing.T) {
	mt := newMockTransport()
	mt.respondWith(func(req Request) (interface{}, bool, string) {
		return nil, false, "not stopped"
	})

	client := NewClient(mt)
	defer client.Close()

	_, err := client.Request(testContext(t), "threads", nil)
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if respErr.Command != "threads" || respErr.Message != "not stopped" {
		t.Errorf("unexpected error fields: %+v", respErr)
	}
	if respErr.Error() != "threads failed: not stopped" {
		t.Errorf("unexpected message %q", respErr.Error())
	}
}

func TestClientEvaluate(t *testing.T) {
	mt := newMockTransport()
	mt.respondWith(func(req Request) (interface{}, bool, string) {
		var args EvaluateArguments
		json.Unmarshal(req.Arguments, &args)
		if args.Context != "repl" {
			return nil, false, "wrong context"
		}
		return EvaluateResponseBody{Result: "echo " + args.Expression}, true, ""
	})

	client := NewClient(mt)
	defer client.Close()

	res, err := client.Evaluate(testContext(t), EvaluateArguments{Expression: "-exec x/4xb $rsp", Context: "repl"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Result != "echo -exec x/4xb $rsp" {
		t.Errorf("unexpected result %q", res.Result)
	}
}

func TestClientContextCancel(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Threads(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClientTransportClosedFailsPending(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)

	errc := make(chan error, 1)
	go func() {
		_, err := client.Threads(context.Background())
		errc <- err
	}()

	// Let the request get registered before the adapter goes away
	time.Sleep(20 * time.Millisecond)
	mt.Close()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("expected error after transport close")
		}
	case <-time.After(time.Second):
		t.Fatal("pending request not released")
	}
}

func TestClientRequestAfterAdapterHangUp(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)
	defer client.Close()

	mt.hangUp()
	deadline := time.Now().Add(time.Second)
	for client.Error() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !errors.Is(client.Error(), io.EOF) {
		t.Fatalf("Error() = %v, want EOF", client.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := client.Request(ctx, "threads", nil)
	if !errors.Is(err, io.EOF) {
		t.Errorf("Request() error = %v, want EOF", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Request() took %v, should fail at once", elapsed)
	}
	if len(mt.getSentMessages()) != 0 {
		t.Error("nothing should be sent to a hung-up adapter")
	}
}

func TestClientSendAfterClose(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)
	client.Close()

	if _, err := client.Request(context.Background(), "threads", nil); err == nil {
		t.Error("expected error after close")
	}
}

func TestClientEvents(t *testing.T) {
	mt := newMockTransport()
	client := NewClient(mt)
	defer client.Close()

	stopped := make(chan StoppedEventBody, 1)
	terminated := make(chan struct{}, 1)
	client.OnStopped(func(body StoppedEventBody) { stopped <- body })
	client.OnTerminated(func(TerminatedEventBody) { terminated <- struct{}{} })

	body, _ := json.Marshal(StoppedEventBody{Reason: "breakpoint", ThreadID: 4})
	mt.queue(Event{ProtocolMessage: ProtocolMessage{Seq: 1, Type: "event"}, Event: "stopped", Body: body})
	mt.queue(Event{ProtocolMessage: ProtocolMessage{Seq: 2, Type: "event"}, Event: "terminated"})

	select {
	case got := <-stopped:
		if got.Reason != "breakpoint" || got.ThreadID != 4 {
			t.Errorf("unexpected stopped body %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("stopped event not delivered")
	}

	select {
	case <-terminated:
	case <-time.After(time.Second):
		t.Fatal("terminated event not delivered")
	}
}
