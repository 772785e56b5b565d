package friendship

import (
	"context"
	"fmt"
)

// Outcome is the result of sending a friend request.
type Outcome string

const (
	OutcomeNone     Outcome = "none"
	OutcomeSent     Outcome = "sent"
	OutcomeAccepted Outcome = "accepted"
)

// State is the relationship between an actor and another user, seen from the
// actor's side.
type State string

const (
	StateNone            State = "none"
	StateRequestSent     State = "request_sent"
	StateRequestReceived State = "request_received"
	StateFriends         State = "friends"
	StateSelf            State = "self"
)

// View scopes a user listing to one of the actor's relationships. ViewAll is
// the unscoped global search.
type View string

const (
	ViewAll      View = ""
	ViewFriends  View = "friends"
	ViewOutgoing View = "outgoing"
	ViewIncoming View = "incoming"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewFriends:
		return ViewFriends, nil
	case ViewOutgoing, ViewIncoming:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

type Counts struct {
	Friends  int `json:"friends"`
	Outgoing int `json:"outgoing_requests"`
	Incoming int `json:"incoming_requests"`
}

// Match is a relational user query: optional case-insensitive substring Text
// over username and public id, scoped to ActorID's View, ordered by username.
type Match struct {
	ActorID int64
	View    View
	Text    string
	Limit   int
	Offset  int
}

// Edges reads and writes friendship and friend-request rows. Friendship rows
// are always written and removed in both directions.
type Edges interface {
	IsFriend(ctx context.Context, a, b int64) (bool, error)
	HasRequest(ctx context.Context, from, to int64) (bool, error)

	AddFriendship(ctx context.Context, a, b int64) error
	RemoveFriendship(ctx context.Context, a, b int64) (bool, error)
	AddRequest(ctx context.Context, from, to int64) error
	RemoveRequest(ctx context.Context, from, to int64) (bool, error)
}

type Repository interface {
	Edges

	// WithPair runs fn in a single transaction that holds a lock on both users
	// for its whole duration. Everything fn does commits or rolls back together.
	WithPair(ctx context.Context, a, b int64, fn func(tx Edges) error) error

	Counts(ctx context.Context, userID int64) (Counts, error)
	// IDsInView returns every user id in actor's view. ViewAll is not valid here.
	IDsInView(ctx context.Context, actorID int64, view View) ([]int64, error)
}
