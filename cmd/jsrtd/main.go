// Command jsrtd is the example daemon: it accepts TCP connections
// speaking the length-prefixed frame protocol (wire.Parser/wire.Build)
// and serves each one through a dispatch.Dispatcher, alongside a small
// HTTP surface for liveness checks and prometheus scraping.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajsrt/jsrt/cmn/config"
	"github.com/ajsrt/jsrt/cmn/cos"
	"github.com/ajsrt/jsrt/cmn/nlog"
	"github.com/ajsrt/jsrt/dispatch"
	"github.com/ajsrt/jsrt/engine/enginetest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	listenAddr string
	healthAddr string
	configPath string
	authSecret string
)

func init() {
	nlog.InitFlags(flag.CommandLine)
	flag.StringVar(&listenAddr, "listen", ":7777", "address to accept wire-protocol connections on")
	flag.StringVar(&healthAddr, "health", ":7778", "address to serve /healthz and /metrics on")
	flag.StringVar(&configPath, "config", "", "path to a JSON config file (defaults applied for anything omitted)")
	flag.StringVar(&authSecret, "auth-secret", "", "HMAC secret for CREATE_RUNTIME.authToken; overrides the config file")
}

func main() {
	flag.Parse()
	_ = flag.Set("logtostderr", "true")

	cfg, err := loadConfig()
	if err != nil {
		cos.ExitLogf("failed to load config: %v", err)
	}
	if authSecret != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.SecretKey = authSecret
	}

	reg := prometheus.NewRegistry()
	// enginetest.Engine is this module's own stand-in JS engine (no
	// concrete interpreter is embedded here); a real deployment links a
	// concrete engine.Engine implementation in its place.
	d, err := dispatch.NewDispatcher(enginetest.Engine{}, cfg, reg)
	if err != nil {
		cos.ExitLogf("failed to build dispatcher: %v", err)
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		cos.ExitLogf("failed to listen on %s: %v", listenAddr, err)
	}
	nlog.Infof("jsrtd: listening for connections on %s", listenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	installSignalHandler(cancel, ln)

	go serveHealth(reg)
	acceptLoop(ctx, ln, d)
	nlog.Flush(true)
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func acceptLoop(ctx context.Context, ln net.Listener, d *dispatch.Dispatcher) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				nlog.Errorf("jsrtd: accept: %v", err)
				return
			}
		}
		go func() {
			if err := d.Serve(ctx, conn); err != nil {
				nlog.Warningf("jsrtd: connection ended: %v", err)
			}
		}()
	}
}

func serveHealth(reg *prometheus.Registry) {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			switch string(ctx.Path()) {
			case "/healthz":
				ctx.SetStatusCode(fasthttp.StatusOK)
				_, _ = ctx.WriteString("ok")
			case "/metrics":
				metricsHandler(ctx)
			default:
				ctx.SetStatusCode(fasthttp.StatusNotFound)
			}
		},
	}
	if err := srv.ListenAndServe(healthAddr); err != nil {
		nlog.Errorf("jsrtd: health server: %v", err)
	}
}

func installSignalHandler(cancel context.CancelFunc, ln net.Listener) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		nlog.Infof("jsrtd: received %v, shutting down", sig)
		cancel()
		_ = ln.Close()
	}()
}
