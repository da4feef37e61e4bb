// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command pollecho is a minimal TCP/Unix echo server exercising the full
// pollio stack end to end: a reactor drives a StreamListener's readiness,
// Accept hands back StreamConns, and every connection is served on its own
// goroutine by an Async read/write loop that waits on reactor-driven
// readiness.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/pollio"
	"github.com/joeycumines/pollio/internal/reactor"
	"github.com/joeycumines/pollio/socket"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "pollecho"
	app.Usage = "run a pollio-backed echo server"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Value: "tcp",
			Usage: "network to listen on: tcp or unix",
		},
		cli.StringFlag{
			Name:  "address",
			Value: "127.0.0.1:7777",
			Usage: "address to listen on",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log the listener's readiness transitions and connection errors",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	network := ctx.String("network")
	address := ctx.String("address")

	var logger pollio.Logger
	if ctx.Bool("verbose") {
		logger = pollio.NewWriterLogger(pollio.LevelDebug, os.Stderr)
	} else {
		logger = pollio.NewNoopLogger()
	}

	r, err := reactor.New()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("creating reactor: %s", err), 1)
	}
	defer r.Close()

	ln, err := socket.ListenStream(network, address, r, pollio.WithLogger(logger))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("listening on %s %s: %s", network, address, err), 1)
	}
	defer ln.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	reactorDone := make(chan error, 1)
	go func() { reactorDone <- r.Run(runCtx) }()

	fmt.Fprintf(os.Stderr, "pollecho listening on %s %s\n", network, ln.Addr())

	acceptAsync := socket.NewAsyncAcceptor(ln)
	for {
		conn, err := acceptAsync.Accept(runCtx)
		if err != nil {
			cancel()
			break
		}
		go serve(runCtx, conn, logger)
	}

	<-reactorDone
	return nil
}

func serve(ctx context.Context, conn *socket.StreamConn, logger pollio.Logger) {
	defer conn.Close()
	async := pollio.NewAsync(conn)
	buf := make([]byte, 4096)
	for {
		n, err := async.Read(ctx, buf)
		if err == nil && n == 0 {
			// A zero-byte read on a stream socket is the peer's end of stream.
			err = io.EOF
		}
		if err != nil {
			if err != io.EOF && logger.IsEnabled(pollio.LevelDebug) {
				logger.Log(pollio.LogEntry{
					Level:    pollio.LevelDebug,
					Category: "pollecho",
					Message:  "connection closed",
					Err:      err,
					FD:       conn.FD(),
				})
			}
			return
		}
		if _, err := async.Write(ctx, buf[:n]); err != nil {
			return
		}
	}
}
