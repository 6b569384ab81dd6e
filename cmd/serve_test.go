package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunUntilDone_ControlAPIFailure(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	block := make(chan struct{})
	defer close(block)

	apiErr := make(chan error, 1)
	apiErr <- errors.New("control API listen on 127.0.0.1:1: address already in use")

	err := runUntilDone(ctx, stop, func() error { <-block; return nil }, apiErr)
	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Fatalf("expected the bind error, got %v", err)
	}
	if ctx.Err() == nil {
		t.Error("context should be cancelled after the API fails")
	}
}

func TestRunUntilDone_ServeErrorWaitsForAPIShutdown(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	apiErr := make(chan error, 1)
	shutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		close(shutDown)
		apiErr <- nil
	}()

	err := runUntilDone(ctx, stop, func() error { return errors.New("bad transport") }, apiErr)
	if err == nil || !strings.HasPrefix(err.Error(), "MCP server: ") {
		t.Fatalf("expected wrapped serve error, got %v", err)
	}
	select {
	case <-shutDown:
	default:
		t.Error("returned before the control API shut down")
	}
}

func TestRunUntilDone_Cancelled(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)
	stop()

	if err := runUntilDone(ctx, stop, func() error { <-block; return nil }, nil); err != nil {
		t.Errorf("expected clean exit on cancel, got %v", err)
	}
}
