package telegram

import (
	"errors"
	"strings"
)

// Callback tokens are short opaque strings carried by inline buttons. Four
// disjoint prefixes partition the token space; the remainder after the prefix
// is the payload, parsed per prefix into one of the Action variants below.
const (
	prefixYesNo      = "yn:"
	prefixColumn     = "col:"
	prefixPollIntent = "pi:"
	prefixPollOption = "po:"
)

const (
	topicPlayerCount = "playercount"
	topicOverride    = "override"

	verbUse    = "use"
	verbNew    = "new"
	verbCreate = "create"
	verbSelect = "select"
	verbCancel = "cancel"

	intentUpdate = "update"
	intentView   = "view"
)

var errUnknownCallback = errors.New("unknown callback")

type Action interface {
	isAction()
}

type YesNoAction struct {
	Topic string
	Yes   bool
}

type ColumnAction struct {
	Verb   string
	Column string
}

type PollIntentAction struct {
	Intent string
}

// PollOptionAction carries the raw payload; numeric validation is the poll
// selector's job so it can report a proper message.
type PollOptionAction struct {
	Raw string
}

func (YesNoAction) isAction()      {}
func (ColumnAction) isAction()     {}
func (PollIntentAction) isAction() {}
func (PollOptionAction) isAction() {}

func encodeCallback(prefix, payload string) string {
	return prefix + payload
}

func splitCallback(data string) (prefix, payload string, ok bool) {
	for _, p := range []string{prefixYesNo, prefixColumn, prefixPollIntent, prefixPollOption} {
		if strings.HasPrefix(data, p) {
			return p, strings.TrimPrefix(data, p), true
		}
	}
	return "", "", false
}

func parseCallback(data string) (Action, error) {
	prefix, payload, ok := splitCallback(data)
	if !ok {
		return nil, errUnknownCallback
	}
	switch prefix {
	case prefixYesNo:
		return parseYesNoAction(payload)
	case prefixColumn:
		return parseColumnAction(payload)
	case prefixPollIntent:
		return parsePollIntentAction(payload)
	default:
		return PollOptionAction{Raw: payload}, nil
	}
}

func parseYesNoAction(payload string) (Action, error) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return nil, errUnknownCallback
	}
	if parts[0] != topicPlayerCount && parts[0] != topicOverride {
		return nil, errUnknownCallback
	}
	switch parts[1] {
	case "yes":
		return YesNoAction{Topic: parts[0], Yes: true}, nil
	case "no":
		return YesNoAction{Topic: parts[0], Yes: false}, nil
	default:
		return nil, errUnknownCallback
	}
}

func parseColumnAction(payload string) (Action, error) {
	if payload == verbCancel {
		return ColumnAction{Verb: verbCancel}, nil
	}
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, errUnknownCallback
	}
	switch parts[0] {
	case verbUse, verbNew, verbCreate, verbSelect:
		return ColumnAction{Verb: parts[0], Column: parts[1]}, nil
	default:
		return nil, errUnknownCallback
	}
}

func parsePollIntentAction(payload string) (Action, error) {
	switch payload {
	case intentUpdate, intentView:
		return PollIntentAction{Intent: payload}, nil
	default:
		return nil, errUnknownCallback
	}
}
