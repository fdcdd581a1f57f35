// Package cos provides common low-level types and utilities shared by the
// bridge, the stream engine, and the dispatcher.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/teris-io/shortid"
)

// Alphabet for generating short, human-correlatable IDs (namespace pool
// keys, connection log-prefixes). Not used for wire-protocol requestId/
// streamId/callbackId, which stay monotonic integers per spec.md §3.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const (
	LenShortID = 9 // as per https://github.com/teris-io/shortid#id-length
	tooLongID  = 32
)

var (
	sid     *shortid.Shortid
	sidOnce sync.Once
	rtie    atomic.Uint32
)

// InitShortID seeds the generator explicitly, for a daemon that wants
// reproducible IDs across a run (e.g. a fixed seed in tests). Safe to call
// before any GenUUID call; GenUUID seeds itself from crypto/rand if this
// was never called.
func InitShortID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, seed)
}

func ensureShortID() {
	sidOnce.Do(func() {
		if sid != nil {
			return
		}
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(errors.New("crypto/rand: " + err.Error()))
		}
		sid = shortid.MustNew(4 /*worker*/, uuidABC, binary.BigEndian.Uint64(b[:]))
	})
}

// GenUUID returns a short, mostly-alphabetic ID: the default namespaceId
// when a CREATE_RUNTIME request omits one, and the log-prefix for a fresh
// connection or isolate context.
func GenUUID() (uuid string) {
	ensureShortID()
	var h, t string
	uuid = sid.MustGenerate()
	if !isAlpha(uuid[0]) {
		tie := int(rtie.Add(1))
		h = string(rune('A' + tie%26))
	}
	c := uuid[len(uuid)-1]
	if c == '-' || c == '_' {
		tie := int(rtie.Add(1))
		t = string(rune('a' + tie%26))
	}
	return h + uuid + t
}

func IsValidUUID(uuid string) bool {
	return len(uuid) >= LenShortID && IsAlphaNice(uuid)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// letters and numbers w/ '-' and '_' permitted with limitations
func IsAlphaNice(s string) bool {
	l := len(s)
	if l > tooLongID {
		return false
	}
	for i := range l {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}

// 3-letter tie breaker (fast)
func GenTie() string {
	tie := rtie.Add(1)
	b0 := uuidABC[tie&0x3f]
	b1 := uuidABC[-tie&0x3f]
	b2 := uuidABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}

// CryptoRandS returns a random alphanumeric string of length n, used where
// an ID must not be guessable (e.g. an auth token salt in cmd/jsrtd).
func CryptoRandS(n int) string {
	const abc = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(errors.New("crypto/rand: " + err.Error()))
	}
	for i := range b {
		b[i] = abc[int(b[i])%len(abc)]
	}
	return string(b)
}
