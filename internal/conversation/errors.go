package conversation

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the presentation shell.
type ErrorKind string

const (
	KindInit           ErrorKind = "InitError"
	KindStartFailed    ErrorKind = "ConversationStartFailed"
	KindNotInitialized ErrorKind = "NotInitialized"
	KindEmptyInput     ErrorKind = "EmptyInput"
	KindContinueFailed ErrorKind = "ContinueFailed"
	KindBusy           ErrorKind = "Busy"
)

// Message is the user-facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindInit:
		return "대화 상대를 찾을 수 없습니다."
	case KindStartFailed:
		return "대화를 시작할 수 없습니다."
	case KindNotInitialized:
		return "대화가 시작되지 않았습니다."
	case KindEmptyInput:
		return "메시지를 입력해주세요."
	case KindContinueFailed:
		return "대화를 불러올 수 없습니다."
	case KindBusy:
		return "대화를 불러오는 중..."
	default:
		return ""
	}
}

// Error carries a kind and the underlying cause, if any.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "conversation: " + string(e.Kind)
	}
	return fmt.Sprintf("conversation: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInit           = &Error{Kind: KindInit}
	ErrStartFailed    = &Error{Kind: KindStartFailed}
	ErrNotInitialized = &Error{Kind: KindNotInitialized}
	ErrEmptyInput     = &Error{Kind: KindEmptyInput}
	ErrContinueFailed = &Error{Kind: KindContinueFailed}
	ErrBusy           = &Error{Kind: KindBusy}

	// ErrStale reports a response that arrived after teardown or re-initialization.
	ErrStale = errors.New("conversation: response superseded")

	errBlankParticipant = errors.New("participant id is blank")
	errSelfConversation = errors.New("participants must differ")
	errMissingSessionID = errors.New("dialogue service returned no session id")
)

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}
