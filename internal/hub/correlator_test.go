package hub

import (
	"errors"
	"testing"
	"time"
)

func TestCorrelatorResolve(t *testing.T) {
	c := NewCorrelator()
	id, waiter := c.Issue(KindMermaid, 1)

	if !c.Pending(id) {
		t.Fatal("issued id not pending")
	}
	if !c.Resolve(id, "payload") {
		t.Fatal("resolve reported unknown id")
	}
	if c.Pending(id) {
		t.Fatal("resolved id still pending")
	}
	select {
	case res := <-waiter:
		if res.Err != nil || res.Payload != "payload" {
			t.Fatalf("unexpected result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never resolved")
	}
}

func TestCorrelatorFirstResultWins(t *testing.T) {
	c := NewCorrelator()
	id, waiter := c.Issue(KindExportImage, 3)

	if !c.Resolve(id, "first") {
		t.Fatal("first resolve rejected")
	}
	if c.Resolve(id, "second") {
		t.Fatal("second resolve accepted")
	}
	if c.Fail(id, errors.New("late error")) {
		t.Fatal("late fail accepted")
	}

	res := <-waiter
	if res.Payload != "first" {
		t.Fatalf("payload = %v, want first", res.Payload)
	}
}

func TestCorrelatorLateResultUnknownID(t *testing.T) {
	c := NewCorrelator()
	if c.Resolve("ghost", nil) {
		t.Fatal("resolve of unknown id reported success")
	}
	if c.Fail("ghost", errors.New("x")) {
		t.Fatal("fail of unknown id reported success")
	}
}

func TestCorrelatorTimeout(t *testing.T) {
	c := NewCorrelator()
	_, waiter := c.IssueWithTimeout(KindViewport, 20*time.Millisecond, 1)

	select {
	case res := <-waiter:
		var te *TimeoutError
		if !errors.As(res.Err, &te) {
			t.Fatalf("expected TimeoutError, got %v", res.Err)
		}
		if te.Kind != KindViewport {
			t.Errorf("timeout kind = %s, want viewport", te.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
}

func TestCorrelatorSingleResponderErrorFailsImmediately(t *testing.T) {
	c := NewCorrelator()
	id, waiter := c.Issue(KindMermaid, 1)

	c.Fail(id, &PeerError{Message: "render failed"})

	select {
	case res := <-waiter:
		var pe *PeerError
		if !errors.As(res.Err, &pe) || pe.Message != "render failed" {
			t.Fatalf("expected the peer error, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("single-responder error did not fail the waiter")
	}
}

func TestCorrelatorErrorDoesNotBeatLaterSuccess(t *testing.T) {
	c := NewCorrelator()
	id, waiter := c.Issue(KindMermaid, 2)

	// One of two peers errors; the waiter must stay parked.
	c.Fail(id, &PeerError{Message: "peer one broke"})
	select {
	case res := <-waiter:
		t.Fatalf("waiter settled early: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	c.Resolve(id, "from peer two")
	res := <-waiter
	if res.Err != nil || res.Payload != "from peer two" {
		t.Fatalf("success after error lost: %+v", res)
	}
}

func TestCorrelatorAllPeersErroredBeforeDeadline(t *testing.T) {
	c := NewCorrelator()
	id, waiter := c.Issue(KindMermaid, 2)

	c.Fail(id, &PeerError{Message: "one"})
	c.Fail(id, &PeerError{Message: "two"})

	select {
	case res := <-waiter:
		var pe *PeerError
		if !errors.As(res.Err, &pe) {
			t.Fatalf("expected PeerError, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not failed after all peers errored")
	}
}

func TestCorrelatorDeadlineReportsHeldError(t *testing.T) {
	c := NewCorrelator()
	id, waiter := c.IssueWithTimeout(KindExportImage, 30*time.Millisecond, 2)

	c.Fail(id, &PeerError{Message: "held"})

	select {
	case res := <-waiter:
		var pe *PeerError
		if !errors.As(res.Err, &pe) || pe.Message != "held" {
			t.Fatalf("deadline should surface the held peer error, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
}

func TestKindDeadlines(t *testing.T) {
	if KindMermaid.Deadline() != 30*time.Second {
		t.Errorf("mermaid deadline = %v", KindMermaid.Deadline())
	}
	if KindExportImage.Deadline() != 30*time.Second {
		t.Errorf("exportImage deadline = %v", KindExportImage.Deadline())
	}
	if KindViewport.Deadline() != 10*time.Second {
		t.Errorf("viewport deadline = %v", KindViewport.Deadline())
	}
}
