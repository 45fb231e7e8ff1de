package uthreads

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrKind identifies one of the error taxonomy entries from the
// library's error handling design: user errors are reported and
// otherwise leave library state unchanged, fatal errors are reported
// and terminate the process.
type ErrKind int

const (
	// User errors (returned as an error, state unchanged).
	ErrBadQuantum ErrKind = iota
	ErrNullEntry
	ErrOutOfTids
	ErrNoSuchTid
	ErrBadTid

	// Fatal host-primitive failures (process exit).
	ErrSigmaskFail
	ErrTimerFail
	ErrSigactionFail
	ErrAllocFail
)

func (k ErrKind) fatal() bool { return k >= ErrSigmaskFail }

func (k ErrKind) String() string {
	switch k {
	case ErrBadQuantum:
		return "invalid quantum value (must be positive)"
	case ErrNullEntry:
		return "the entry point function can't be nil"
	case ErrOutOfTids:
		return "reached the maximal number of threads"
	case ErrNoSuchTid:
		return "thread with this tid does not exist"
	case ErrBadTid:
		return "operation not permitted on this tid"
	case ErrSigmaskFail:
		return "sigprocmask error"
	case ErrTimerFail:
		return "setitimer error"
	case ErrSigactionFail:
		return "sigaction error"
	case ErrAllocFail:
		return "allocation failed"
	default:
		return "unknown error"
	}
}

// libraryError wraps an ErrKind so callers can test an error against
// the taxonomy with Is instead of parsing diagnostic text. ErrKind does
// not implement error, so errors.Is with an ErrKind does not match.
type libraryError struct {
	kind ErrKind
	op   string
	tid  int
}

func (e *libraryError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, e.kind.String())
}

// Is reports whether err was produced for the given ErrKind.
func Is(err error, kind ErrKind) bool {
	var le *libraryError
	if errors.As(err, &le) {
		return le.kind == kind
	}
	return false
}

// prefixFormatter renders exactly "thread library error: <msg>\n" or
// "system error: <msg>\n" to stderr, per spec, while still attaching
// structured fields (tid, op, err_kind) for anyone routing the same
// *logrus.Logger to a JSON sink instead.
type prefixFormatter struct{}

func (prefixFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefix := "thread library error: "
	if fatal, _ := entry.Data["fatal"].(bool); fatal {
		prefix = "system error: "
	}
	return []byte(prefix + entry.Message + "\n"), nil
}

func newDiagnosticsLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(prefixFormatter{})
	return l
}

// reportUser logs a user error (kind < ErrSigmaskFail) to stderr with the
// "thread library error: " prefix and returns it wrapped as an error;
// it never terminates the process.
func (s *Scheduler) reportUser(op string, tid int, kind ErrKind) error {
	s.log.WithFields(logrus.Fields{"op": op, "tid": tid, "err_kind": kind}).
		Error(kind.String())
	return &libraryError{kind: kind, op: op, tid: tid}
}

// reportFatal logs a host-primitive failure with the "system error: "
// prefix and terminates the process with a non-zero exit status, per
// spec's fatal error handling design.
func (s *Scheduler) reportFatal(op string, kind ErrKind) {
	s.log.WithFields(logrus.Fields{"op": op, "err_kind": kind, "fatal": true}).
		Error(kind.String())
	os.Exit(1)
}
