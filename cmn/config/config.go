// Package config holds the runtime-tunable knobs of the JS runtime host:
// frame limits, marshal depth, liveness timeouts, and the namespace-pool
// policy. Styled after the teacher's `cmn` config surface: a JSON-decodable
// struct plus a read-mostly cache (`Rom`) refreshed on (re)load so hot paths
// never pay for a map/struct lookup per request.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

type (
	// Wire holds the Frame Parser/Builder's limits (spec.md §4.1, §6).
	Wire struct {
		MaxFrameSize int64 `json:"max_frame_size"` // bytes; default well under 100MiB
	}

	// Marshal holds the Value Marshaller's limits (spec.md §4.3).
	Marshal struct {
		MaxDepth int `json:"max_depth"` // default 100
	}

	// Dispatcher holds the daemon dispatcher's timing policy (spec.md §4.9, §5).
	Dispatcher struct {
		LivenessTimeout  time.Duration `json:"liveness_timeout"`
		HeartbeatPeriod  time.Duration `json:"heartbeat_period"`
		RequestTimeout   time.Duration `json:"request_timeout"`
		IdleStreamExpiry time.Duration `json:"idle_stream_expiry"`
	}

	// NamespacePool holds the warm-reuse pool's policy (glossary: Namespace pool).
	NamespacePool struct {
		Enabled    bool          `json:"enabled"`
		MaxEntries int           `json:"max_entries"`
		TTL        time.Duration `json:"ttl"`
	}

	// Auth controls optional CREATE_RUNTIME.authToken verification (SPEC_FULL §6).
	Auth struct {
		Enabled   bool   `json:"enabled"`
		SecretKey string `json:"secret_key"`
	}

	Config struct {
		Wire       Wire          `json:"wire"`
		Marshal    Marshal       `json:"marshal"`
		Dispatcher Dispatcher    `json:"dispatcher"`
		Namespace  NamespacePool `json:"namespace_pool"`
		Auth       Auth          `json:"auth"`
	}
)

func Default() *Config {
	return &Config{
		Wire: Wire{MaxFrameSize: 64 * 1024 * 1024},
		Marshal: Marshal{
			MaxDepth: 100,
		},
		Dispatcher: Dispatcher{
			LivenessTimeout:  30 * time.Second,
			HeartbeatPeriod:  10 * time.Second,
			RequestTimeout:   60 * time.Second,
			IdleStreamExpiry: 2 * time.Minute,
		},
		Namespace: NamespacePool{
			Enabled:    true,
			MaxEntries: 256,
			TTL:        5 * time.Minute,
		},
	}
}

// Load reads a JSON config file, defaulting any field left at its zero
// value. Uses json-iterator for parity with the teacher's JSON handling
// throughout (jsonNotifs, FsID, etc. in the teacher all go through jsoniter).
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := jsoniter.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readMostly is a cache of the handful of config values read on every
// hot-path operation (one per frame, one per marshal call), refreshed only
// on (re)load — mirrors the teacher's cmn.Rom to avoid a config dereference
// per request.
type readMostly struct {
	maxFrameSize int64
	maxDepth     int
	authEnabled  bool
}

var Rom readMostly

func (rom *readMostly) Set(cfg *Config) {
	rom.maxFrameSize = cfg.Wire.MaxFrameSize
	rom.maxDepth = cfg.Marshal.MaxDepth
	rom.authEnabled = cfg.Auth.Enabled
}

func (rom *readMostly) MaxFrameSize() int64 { return rom.maxFrameSize }
func (rom *readMostly) MaxDepth() int       { return rom.maxDepth }
func (rom *readMostly) AuthEnabled() bool   { return rom.authEnabled }

func init() {
	Rom.Set(Default())
}
