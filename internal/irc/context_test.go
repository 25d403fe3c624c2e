package irc

import (
	"errors"
	"testing"
)

func TestSendLineAfterClose(t *testing.T) {
	ctx, rec := newTestContext()

	if err := ctx.SendLine("JOIN #test"); err != nil {
		t.Fatalf("SendLine failed: %v", err)
	}

	ctx.Close()
	if err := ctx.SendLine("PART #test"); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Expected ErrDisconnected, got %v", err)
	}

	if got := rec.sent(); len(got) != 1 || got[0] != "JOIN #test" {
		t.Errorf("Unexpected lines sent: %q", got)
	}
}

func TestMissingCapability(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.MarkReady()

	if err := ctx.Reply("hi"); !errors.Is(err, ErrMissingCapability) {
		t.Errorf("Expected ErrMissingCapability from Reply, got %v", err)
	}
	if err := ctx.Join("#test"); !errors.Is(err, ErrMissingCapability) {
		t.Errorf("Expected ErrMissingCapability from Join, got %v", err)
	}
}

func TestAttachLastWriterWins(t *testing.T) {
	ctx, _ := newTestContext()

	var got string
	ctx.AttachSay(func(target, message string) error {
		got = "first"
		return nil
	})
	ctx.AttachSay(func(target, message string) error {
		got = "second"
		return nil
	})
	ctx.MarkReady()

	if err := ctx.Say("#test", "hi"); err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if got != "second" {
		t.Errorf("Expected last attached say to win, got %q", got)
	}
	if !ctx.Attached(CapSay) || ctx.Attached(CapNotice) {
		t.Error("Attached() bookkeeping wrong")
	}
}

func TestAttachAfterReady(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.MarkReady()

	err := ctx.AttachPart(func(string) error { return nil })
	if !errors.Is(err, ErrSealed) {
		t.Errorf("Expected ErrSealed, got %v", err)
	}
}

func TestLineIsCopied(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.SetLine(Line{Command: "PRIVMSG", Args: []string{"#test", "hi"}})

	l := ctx.Line()
	l.Args[0] = "#changed"

	if ctx.Line().Args[0] != "#test" {
		t.Error("Line() exposed internal args")
	}
}
