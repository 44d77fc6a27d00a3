package genie

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"brickstore/internal/api"
	"brickstore/internal/logging"
	"brickstore/internal/session"
)

// Assistant is the backend surface a conversation needs. Implemented by the
// api client; faked in tests.
type Assistant interface {
	StartConversation(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error)
	ContinueConversation(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error)
}

// CredentialSource provides read-only access to the current credential. The
// conversation never mutates it.
type CredentialSource interface {
	Credential() *session.Credential
}

// Submission rejections. These are backpressure, not failures: nothing is
// appended and nothing is reported to the error observer.
var (
	ErrNoQuestion       = errors.New("question is empty")
	ErrTurnInFlight     = errors.New("a turn is already in flight")
	ErrNotAuthenticated = errors.New("no credential for assistant call")
	ErrDisposed         = errors.New("conversation is disposed")
)

// ConversationRequestError is a network or backend failure during a turn.
// The user's question stays in the transcript; no assistant message is
// appended; the user may resubmit.
type ConversationRequestError struct {
	Err error
}

func (e *ConversationRequestError) Error() string {
	return fmt.Sprintf("assistant request failed: %v", e.Err)
}

func (e *ConversationRequestError) Unwrap() error { return e.Err }

// Conversation is one dialogue with the assistant. Created fresh per visit
// to the chat view; not persisted.
type Conversation struct {
	assistant Assistant
	creds     CredentialSource

	mu             sync.Mutex
	messages       []Message
	conversationID string
	pending        bool
	disposed       bool
	onError        func(error)
}

// NewConversation creates an empty conversation.
func NewConversation(assistant Assistant, creds CredentialSource) *Conversation {
	return &Conversation{assistant: assistant, creds: creds}
}

// OnError registers the observer for failed turns. Called outside the
// conversation lock.
func (c *Conversation) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Greet appends the opening assistant message, personalized from the
// credential. No-op when unauthenticated.
func (c *Conversation) Greet() {
	cred := c.creds.Credential()
	if cred == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{
		Role: RoleAssistant,
		Content: fmt.Sprintf(
			"Hi %s! Welcome to your personal data assistant. I'm here to help you explore and understand your data. Feel free to ask me anything related to %s's sales on Brickstore - what can I assist you with today?",
			cred.FirstName, cred.Company),
		Time: time.Now(),
	})
}

// Submit runs one turn: append the user's question, call the backend (start
// on the first turn, continue with the fixed identifier afterwards), append
// the rendered reply. At most one turn is in flight at a time; a second
// Submit while pending is rejected without side effects. On transport
// failure the question stays in the transcript, no reply is appended, and
// the error goes to the observer and the caller.
func (c *Conversation) Submit(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrNoQuestion
	}

	cred := c.creds.Credential()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.pending {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	if cred == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}

	c.messages = append(c.messages, Message{Role: RoleUser, Content: question, Time: time.Now()})
	c.pending = true
	conversationID := c.conversationID
	c.mu.Unlock()

	req := api.TurnRequest{
		AssistantToken: cred.AssistantToken,
		Question:       question,
		ConversationID: conversationID,
		Company:        cred.Company,
	}

	var resp *api.TurnResponse
	var err error
	if conversationID == "" {
		logging.Genie("starting conversation")
		resp, err = c.assistant.StartConversation(ctx, req)
	} else {
		resp, err = c.assistant.ContinueConversation(ctx, req)
	}

	c.mu.Lock()
	if c.disposed {
		// The view is gone; a late result must not mutate anything.
		c.mu.Unlock()
		return nil
	}
	c.pending = false

	if err != nil {
		onError := c.onError
		c.mu.Unlock()

		turnErr := &ConversationRequestError{Err: err}
		logging.GenieError("turn failed: %v", err)
		if onError != nil {
			onError(turnErr)
		}
		return turnErr
	}

	if c.conversationID == "" && resp.ConversationID != "" {
		c.conversationID = resp.ConversationID
		logging.Genie("conversation id fixed: %s", resp.ConversationID)
	}
	c.messages = append(c.messages, Render(resp))
	c.mu.Unlock()

	return nil
}

// Messages returns a snapshot of the transcript in append order.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending reports whether a turn is in flight.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// ConversationID returns the backend-issued identifier, empty before the
// first successful turn.
func (c *Conversation) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Dispose marks the conversation dead. In-flight responses that arrive
// afterwards are discarded rather than appended.
func (c *Conversation) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
}
