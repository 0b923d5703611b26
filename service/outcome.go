// Package service holds the business operations behind the request handlers.
//
// Operations report an Outcome instead of mixing booleans and errors: a
// rejection is an expected business answer (duplicate email, wrong password)
// carrying a user-facing reason, a failure is an infrastructure fault whose
// detail must only reach the logs.
package service

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
)

type Kind int

const (
	KindOK Kind = iota
	KindRejected
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRejected:
		return "rejected"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

type Outcome struct {
	Kind   Kind
	Reason string
	Err    error
	At     string // file:line that reported the failure
}

func Success() Outcome {
	return Outcome{Kind: KindOK}
}

func Reject(reason string) Outcome {
	return Outcome{Kind: KindRejected, Reason: reason}
}

func Fail(err error) Outcome {
	return Outcome{Kind: KindFailed, Err: err, At: CallSite(2)}
}

// CallSite returns file:line of the caller skip frames above it.
func CallSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (o Outcome) OK() bool {
	return o.Kind == KindOK
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindRejected:
		return fmt.Sprintf("rejected: %s", o.Reason)
	case KindFailed:
		return fmt.Sprintf("failed: %v", o.Err)
	}
	return o.Kind.String()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
