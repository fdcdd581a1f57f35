// Package cos provides common low-level types and utilities shared by the
// bridge, the stream engine, and the dispatcher.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	ratomic "sync/atomic"
	"syscall"

	"github.com/ajsrt/jsrt/cmn/debug"
	"github.com/ajsrt/jsrt/cmn/nlog"
)

// Error codes, per spec.md §6: a closed enum of numeric codes carried on
// RESPONSE_ERROR frames. Grouped by kind (protocol/isolate/execution/stream/
// connection), matching the ranges the wire protocol reserves for them.
const (
	CodeProtocolMalformed  = 1001
	CodeProtocolUnknownMsg = 1002
	CodeProtocolBadField   = 1003

	CodeIsolateNotFound    = 2001
	CodeIsolateDisposed    = 2002
	CodeIsolateMemoryLimit = 2003
	CodeIsolateTimeout     = 2004

	CodeExecutionThrew    = 3001
	CodeExecutionCallback = 3002

	CodeStreamNotFound = 4001
	CodeStreamReleased = 4002

	CodeConnectionLost = 5001
)

// Coded is implemented by every typed error that carries one of the codes
// above, so the dispatcher can fill RESPONSE_ERROR.code via errors.As
// without a kind-by-kind switch.
type Coded interface {
	error
	Code() int
}

type (
	ErrNotFound struct {
		what string
	}
	ErrSignal struct {
		signal syscall.Signal
	}
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}

	// ErrIsolateNotFound — spec.md §4.9: frames for an unknown isolate.
	ErrIsolateNotFound struct{ ID string }
	// ErrIsolateDisposed — spec.md §4.9: frames for a disposed isolate.
	ErrIsolateDisposed struct{ ID string }
	// ErrIsolateTimeout — spec.md §4.9: request exceeded its deadline.
	ErrIsolateTimeout struct{ ID string }
	// ErrIsolateMemoryLimit — spec.md §4.9: isolate exceeded its memory budget.
	ErrIsolateMemoryLimit struct{ ID string }
	// ErrConnectionLost — spec.md §4.9: liveness timeout or a retriable conn error.
	ErrConnectionLost struct{ Reason string }
	// ErrCallback — spec.md §4.9: a host callback rejected or the guest threw
	// inside one.
	ErrCallback struct{ Reason string }
	// ErrInstanceNotFound — spec.md §4.5: method call against a stale registry id.
	ErrInstanceNotFound struct{ ID int64 }
	// ErrFrameTooLarge — spec.md §4.1: frame exceeds the configured maximum.
	ErrFrameTooLarge struct{ Len, Max uint32 }
	// ErrStreamLocked — spec.md §4.8, invariant 6: second reader/writer acquisition.
	ErrStreamLocked struct{}
	// ErrStreamReleased — spec.md §4.8/§7: op on a reader/writer after releaseLock.
	ErrStreamReleased struct{}
	// ErrUnmarshalable — spec.md §4.3: symbol, unknown class, depth/cycle.
	ErrUnmarshalable struct{ Reason string }
	// ErrCircular — spec.md §8, S5: self-referential object graph.
	ErrCircular struct{}
)

var (
	ErrQuantityUsage   = errors.New("invalid quantity, format should be '81%' or '1GB'")
	ErrQuantityPercent = errors.New("percent must be in the range (0, 100)")
	ErrQuantityBytes   = errors.New("value (bytes) must be non-negative")

	errQuantityNonNegative = errors.New("quantity should not be negative")
)

var errBufferUnderrun = errors.New("buffer underrun")

// ErrNotFound

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// domain errors

func (e *ErrIsolateNotFound) Error() string { return fmt.Sprintf("isolate %q not found", e.ID) }
func (*ErrIsolateNotFound) Code() int       { return CodeIsolateNotFound }

func (e *ErrIsolateDisposed) Error() string { return fmt.Sprintf("isolate %q is disposed", e.ID) }
func (*ErrIsolateDisposed) Code() int       { return CodeIsolateDisposed }

func (e *ErrIsolateTimeout) Error() string { return fmt.Sprintf("isolate %q: execution timeout", e.ID) }
func (*ErrIsolateTimeout) Code() int       { return CodeIsolateTimeout }

func (e *ErrInstanceNotFound) Error() string { return fmt.Sprintf("Instance %d not found", e.ID) }
func (*ErrInstanceNotFound) Code() int       { return CodeExecutionThrew }

func (e *ErrIsolateMemoryLimit) Error() string {
	return fmt.Sprintf("isolate %q: memory limit exceeded", e.ID)
}
func (*ErrIsolateMemoryLimit) Code() int { return CodeIsolateMemoryLimit }

func (e *ErrConnectionLost) Error() string { return "connection lost: " + e.Reason }
func (*ErrConnectionLost) Code() int       { return CodeConnectionLost }

func (e *ErrCallback) Error() string { return "callback error: " + e.Reason }
func (*ErrCallback) Code() int       { return CodeExecutionCallback }

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("frame length %d exceeds configured maximum %d", e.Len, e.Max)
}
func (*ErrFrameTooLarge) Code() int { return CodeProtocolMalformed }

func (*ErrStreamLocked) Error() string { return "stream already has an active reader or writer" }
func (*ErrStreamLocked) Code() int     { return CodeStreamNotFound }

func (*ErrStreamReleased) Error() string { return "reader or writer was released" }
func (*ErrStreamReleased) Code() int     { return CodeStreamReleased }

func (e *ErrUnmarshalable) Error() string { return "unmarshalable type: " + e.Reason }
func (*ErrUnmarshalable) Code() int       { return CodeProtocolBadField }

func (*ErrCircular) Error() string { return "Circular reference detected" }
func (*ErrCircular) Code() int     { return CodeProtocolBadField }

// Errs
// add Unwrap() if need be

const maxErrs = 4

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	// first, check for duplication
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...) // up to maxErrs
		e.mu.Unlock()
	}
	return
}

// Errs is an error
func (e *Errs) Error() (s string) {
	var (
		err error
		cnt = e.Cnt()
	)
	if cnt == 0 {
		return
	}
	e.mu.Lock()
	if cnt = len(e.errs); cnt > 0 {
		err = e.errs[0]
	}
	e.mu.Unlock()
	if err == nil {
		return // unlikely
	}
	if cnt > 1 {
		err = fmt.Errorf("%v (and %d more error%s)", err, cnt-1, Plural(cnt-1))
	}
	s = err.Error()
	return
}

//
// IS-syscall helpers
//

func UnwrapSyscallErr(err error) error {
	if syscallErr, ok := err.(*os.SyscallError); ok {
		return syscallErr.Unwrap()
	}
	return nil
}

func IsErrSyscallTimeout(err error) bool {
	syscallErr, ok := err.(*os.SyscallError)
	return ok && syscallErr.Timeout()
}

// likely out of socket descriptors
func IsErrConnectionNotAvail(err error) (yes bool) {
	return errors.Is(err, syscall.EADDRNOTAVAIL)
}

// retriable conn errs — the dispatcher's liveness monitor (spec.md §4.9)
// treats these as CodeConnectionLost rather than a protocol fault.
func IsErrConnectionRefused(err error) (yes bool) { return errors.Is(err, syscall.ECONNREFUSED) }
func IsErrConnectionReset(err error) (yes bool)   { return errors.Is(err, syscall.ECONNRESET) }
func IsErrBrokenPipe(err error) (yes bool)        { return errors.Is(err, syscall.EPIPE) }

func IsRetriableConnErr(err error) (yes bool) {
	return IsErrConnectionRefused(err) || IsErrConnectionReset(err) || IsErrBrokenPipe(err)
}

func isErrDNSLookup(err error) bool {
	_, ok := err.(*net.DNSError)
	return ok
}

func IsUnreachable(err error, status int) bool {
	return IsErrConnectionRefused(err) ||
		isErrDNSLookup(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		status == http.StatusRequestTimeout ||
		status == http.StatusServiceUnavailable ||
		IsEOF(err) ||
		status == http.StatusBadGateway
}

//
// ErrSignal
//

// https://tldp.org/LDP/abs/html/exitcodes.html
func (e *ErrSignal) ExitCode() int               { return 128 + int(e.signal) }
func NewSignalError(s syscall.Signal) *ErrSignal { return &ErrSignal{signal: s} }
func (e *ErrSignal) Error() string               { return fmt.Sprintf("Signal %d", e.signal) }

//
// Abnormal Termination
//

const fatalPrefix = "FATAL ERROR: "

func Exitf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	_exit(msg)
}

// +log
func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	if flag.Parsed() {
		nlog.ErrorDepth(1, msg+"\n")
		nlog.Flush(true)
	}
	_exit(msg)
}

func ExitLog(a ...any) {
	msg := fatalPrefix + fmt.Sprint(a...)
	if flag.Parsed() {
		nlog.ErrorDepth(1, msg+"\n")
		nlog.Flush(true)
	}
	_exit(msg)
}

func _exit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

//
// url.Error
//

func Err2ClientURLErr(err error) (uerr *url.Error) {
	if e, ok := err.(*url.Error); ok {
		uerr = e
	}
	return
}

func IsErrClientURLTimeout(err error) bool {
	uerr := Err2ClientURLErr(err)
	return uerr != nil && uerr.Timeout()
}

//
// misc
//

func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func IsEOF(err error) bool { return errors.Is(err, io.EOF) || errors.Is(err, errBufferUnderrun) }
