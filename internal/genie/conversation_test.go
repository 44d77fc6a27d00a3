package genie

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"brickstore/internal/api"
	"brickstore/internal/session"
)

type fakeCreds struct{ cred *session.Credential }

func (f *fakeCreds) Credential() *session.Credential { return f.cred }

type fakeAssistant struct {
	mu            sync.Mutex
	startCalls    []api.TurnRequest
	continueCalls []api.TurnRequest

	resp *api.TurnResponse
	err  error

	// When set, calls block until the channel is closed.
	gate chan struct{}

	inFlight    int32
	maxInFlight int32
}

func (f *fakeAssistant) serve(req api.TurnRequest, start bool) (*api.TurnResponse, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	if start {
		f.startCalls = append(f.startCalls, req)
	} else {
		f.continueCalls = append(f.continueCalls, req)
	}
	gate := f.gate
	resp, err := f.resp, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return resp, err
}

func (f *fakeAssistant) StartConversation(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error) {
	return f.serve(req, true)
}

func (f *fakeAssistant) ContinueConversation(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error) {
	return f.serve(req, false)
}

func testCreds() *fakeCreds {
	return &fakeCreds{cred: &session.Credential{
		FirstName:      "Ada",
		Email:          "u@x.com",
		Company:        "apex",
		AssistantToken: "tok-123",
	}}
}

func TestSubmit_FirstTurnStartsConversation(t *testing.T) {
	assistant := &fakeAssistant{resp: &api.TurnResponse{
		ConversationID: "c1",
		QueryResult:    `[{"x":1}]`,
		Description:    "here",
	}}
	conv := NewConversation(assistant, testCreds())

	if err := conv.Submit(context.Background(), "How many units sold?"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(assistant.startCalls) != 1 || len(assistant.continueCalls) != 0 {
		t.Fatalf("calls: start=%d continue=%d, want 1/0", len(assistant.startCalls), len(assistant.continueCalls))
	}
	call := assistant.startCalls[0]
	if call.AssistantToken != "tok-123" || call.Company != "apex" {
		t.Errorf("credential context missing from request: %+v", call)
	}
	if call.ConversationID != "" {
		t.Errorf("first turn must not carry an identifier, got %q", call.ConversationID)
	}

	if conv.ConversationID() != "c1" {
		t.Errorf("ConversationID = %q, want c1", conv.ConversationID())
	}

	msgs := conv.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "How many units sold?" {
		t.Errorf("user message: %+v", msgs[0])
	}
	reply := msgs[1]
	if reply.Role != RoleAssistant || reply.Content != "here" {
		t.Errorf("assistant message: %+v", reply)
	}
	if len(reply.Table) != 1 || reply.Table[0]["x"] != float64(1) {
		t.Errorf("table: %+v", reply.Table)
	}
}

func TestSubmit_FollowupContinuesWithFixedID(t *testing.T) {
	assistant := &fakeAssistant{resp: &api.TurnResponse{ConversationID: "c1", Content: "42"}}
	conv := NewConversation(assistant, testCreds())

	if err := conv.Submit(context.Background(), "How many units sold?"); err != nil {
		t.Fatal(err)
	}

	// The backend echoing a different id later must not reassign ours.
	assistant.mu.Lock()
	assistant.resp = &api.TurnResponse{ConversationID: "c2", Content: "fewer"}
	assistant.mu.Unlock()

	if err := conv.Submit(context.Background(), "and last month?"); err != nil {
		t.Fatal(err)
	}

	if len(assistant.continueCalls) != 1 {
		t.Fatalf("continue calls = %d, want 1", len(assistant.continueCalls))
	}
	if got := assistant.continueCalls[0].ConversationID; got != "c1" {
		t.Errorf("continue carried id %q, want c1", got)
	}
	if conv.ConversationID() != "c1" {
		t.Errorf("identifier reassigned to %q", conv.ConversationID())
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	gate := make(chan struct{})
	assistant := &fakeAssistant{
		resp: &api.TurnResponse{ConversationID: "c1", Content: "ok"},
		gate: gate,
	}
	conv := NewConversation(assistant, testCreds())

	done := make(chan error, 1)
	go func() { done <- conv.Submit(context.Background(), "first") }()

	// Wait for the first turn to reach the backend.
	deadline := time.Now().Add(2 * time.Second)
	for conv.Pending() == false {
		if time.Now().After(deadline) {
			t.Fatal("first submit never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	if err := conv.Submit(context.Background(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("overlapping submit: err = %v, want ErrTurnInFlight", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	if got := atomic.LoadInt32(&assistant.maxInFlight); got != 1 {
		t.Errorf("max in-flight requests = %d, want 1", got)
	}

	// Rejected submit left no trace; only the completed turn is recorded.
	msgs := conv.Messages()
	if len(msgs) != 2 {
		t.Errorf("transcript has %d messages, want 2", len(msgs))
	}
	if conv.Pending() {
		t.Error("pending should be false after completion")
	}
}

func TestSubmit_FailureDropsReplyKeepsQuestion(t *testing.T) {
	assistant := &fakeAssistant{err: errors.New("backend down")}
	conv := NewConversation(assistant, testCreds())

	var observed error
	conv.OnError(func(err error) { observed = err })

	err := conv.Submit(context.Background(), "How many units sold?")
	if err == nil {
		t.Fatal("expected error")
	}
	var turnErr *ConversationRequestError
	if !errors.As(err, &turnErr) {
		t.Errorf("err type = %T, want *ConversationRequestError", err)
	}
	if observed == nil {
		t.Error("failure was not surfaced to the observer")
	}

	msgs := conv.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("transcript = %+v, want only the user question", msgs)
	}
	if conv.Pending() {
		t.Error("pending must reset after failure")
	}
	if conv.ConversationID() != "" {
		t.Error("failed first turn must not fix an identifier")
	}

	// The user may resubmit.
	assistant.mu.Lock()
	assistant.err = nil
	assistant.resp = &api.TurnResponse{ConversationID: "c1", Content: "42"}
	assistant.mu.Unlock()

	if err := conv.Submit(context.Background(), "How many units sold?"); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if got := len(conv.Messages()); got != 3 {
		t.Errorf("transcript has %d messages after resubmit, want 3", got)
	}
}

func TestSubmit_AssistantCountNeverExceedsUserCount(t *testing.T) {
	assistant := &fakeAssistant{resp: &api.TurnResponse{ConversationID: "c1", Content: "ok"}}
	conv := NewConversation(assistant, testCreds())

	_ = conv.Submit(context.Background(), "one")
	assistant.mu.Lock()
	assistant.err = errors.New("flaky")
	assistant.mu.Unlock()
	_ = conv.Submit(context.Background(), "two")
	assistant.mu.Lock()
	assistant.err = nil
	assistant.mu.Unlock()
	_ = conv.Submit(context.Background(), "three")

	users, assistants := 0, 0
	for _, m := range conv.Messages() {
		switch m.Role {
		case RoleUser:
			users++
		case RoleAssistant:
			assistants++
		}
	}
	if assistants > users {
		t.Errorf("assistant messages (%d) exceed user messages (%d)", assistants, users)
	}
	if users != 3 || assistants != 2 {
		t.Errorf("counts = %d/%d, want 3 user / 2 assistant", users, assistants)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	assistant := &fakeAssistant{resp: &api.TurnResponse{Content: "ok"}}

	conv := NewConversation(assistant, testCreds())
	if err := conv.Submit(context.Background(), "   "); !errors.Is(err, ErrNoQuestion) {
		t.Errorf("blank question: err = %v, want ErrNoQuestion", err)
	}
	if len(conv.Messages()) != 0 {
		t.Error("rejected submit must not append")
	}

	anon := NewConversation(assistant, &fakeCreds{})
	if err := anon.Submit(context.Background(), "hi"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("no credential: err = %v, want ErrNotAuthenticated", err)
	}
}

func TestDispose_LateResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	assistant := &fakeAssistant{
		resp: &api.TurnResponse{ConversationID: "c1", Content: "late"},
		gate: gate,
	}
	conv := NewConversation(assistant, testCreds())

	done := make(chan error, 1)
	go func() { done <- conv.Submit(context.Background(), "question") }()

	deadline := time.Now().Add(2 * time.Second)
	for conv.Pending() == false {
		if time.Now().After(deadline) {
			t.Fatal("submit never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	conv.Dispose()
	close(gate)

	if err := <-done; err != nil {
		t.Fatalf("late completion should be a silent no-op, got %v", err)
	}

	msgs := conv.Messages()
	if len(msgs) != 1 {
		t.Errorf("disposed conversation gained messages: %+v", msgs)
	}
	if conv.ConversationID() != "" {
		t.Error("disposed conversation adopted an identifier")
	}

	if err := conv.Submit(context.Background(), "again"); !errors.Is(err, ErrDisposed) {
		t.Errorf("submit after dispose: err = %v, want ErrDisposed", err)
	}
}

func TestGreet(t *testing.T) {
	conv := NewConversation(&fakeAssistant{}, testCreds())
	conv.Greet()

	msgs := conv.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleAssistant {
		t.Fatalf("greeting missing: %+v", msgs)
	}
	for _, want := range []string{"Ada", "apex"} {
		if !strings.Contains(msgs[0].Content, want) {
			t.Errorf("greeting %q missing %q", msgs[0].Content, want)
		}
	}

	anon := NewConversation(&fakeAssistant{}, &fakeCreds{})
	anon.Greet()
	if len(anon.Messages()) != 0 {
		t.Error("greeting without a credential should be a no-op")
	}
}
