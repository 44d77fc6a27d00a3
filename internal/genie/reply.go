package genie

import (
	"encoding/json"
	"fmt"
	"time"

	"brickstore/internal/api"
	"brickstore/internal/logging"
)

// ReplyKind tags the two reply shapes the backend produces.
type ReplyKind int

const (
	// ReplyText is a plain natural-language answer.
	ReplyText ReplyKind = iota
	// ReplyTabular is a query result set plus its description.
	ReplyTabular
)

// Reply is the parsed form of a raw turn response, replacing the ad-hoc
// presence checks on the wire shape.
type Reply struct {
	Kind    ReplyKind
	Content string
	Rows    []Row
}

// MalformedReplyError is a structured result payload that does not parse as
// the expected row format. It is recovered inside Render, never surfaced to
// the submitting caller.
type MalformedReplyError struct {
	Err error
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("malformed query result: %v", e.Err)
}

func (e *MalformedReplyError) Unwrap() error { return e.Err }

// malformedNotice is shown in place of a table we could not parse.
const malformedNotice = "I received a result set I couldn't display. Try asking the question again."

// Parse classifies a raw turn response into its tagged form. A present but
// unparseable query result is a MalformedReplyError.
func Parse(resp *api.TurnResponse) (Reply, error) {
	if resp.QueryResult == "" {
		return Reply{Kind: ReplyText, Content: resp.Content}, nil
	}

	var rows []Row
	if err := json.Unmarshal([]byte(resp.QueryResult), &rows); err != nil {
		return Reply{}, &MalformedReplyError{Err: err}
	}
	return Reply{Kind: ReplyTabular, Content: resp.Description, Rows: rows}, nil
}

// Render builds the assistant transcript message for a raw turn response.
// Pure except for logging: a malformed result set degrades to a text-only
// message with a generic notice instead of erroring into the caller.
func Render(resp *api.TurnResponse) Message {
	reply, err := Parse(resp)
	if err != nil {
		logging.GenieError("dropping table payload: %v", err)
		return Message{Role: RoleAssistant, Content: malformedNotice, Time: time.Now()}
	}

	return Message{
		Role:    RoleAssistant,
		Content: reply.Content,
		Table:   reply.Rows,
		Time:    time.Now(),
	}
}
