// Package streams implements the Stream Abstraction (spec.md §4.8).
// Kept as an internal `package streams` test suite, not the teacher's usual
// external `_test` package, since several specs below exercise unexported
// state (s.read()) that only an in-package test can reach.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package streams

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestStreams(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}
