package peerconn

import (
	"errors"
	"testing"
	"time"

	"github.com/relaybeam/relaybeam/internal/transfererr"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Idle:         "idle",
		Negotiating:  "negotiating",
		Connected:    "connected",
		Disconnected: "disconnected",
		Recovering:   "recovering",
		Closed:       "closed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{}, nil)
	if c.cfg.LowWaterMark != DefaultLowWater {
		t.Errorf("LowWaterMark = %d, want %d", c.cfg.LowWaterMark, DefaultLowWater)
	}
	if c.cfg.OpenTimeout != DefaultOpenTimeout {
		t.Errorf("OpenTimeout = %v, want %v", c.cfg.OpenTimeout, DefaultOpenTimeout)
	}
	if c.State() != Idle {
		t.Errorf("new controller should start Idle, got %v", c.State())
	}
}

func TestMarkTransferCompleteSuppressesVanishRecovery(t *testing.T) {
	c := New(Config{}, nil)
	c.initiator = true
	c.everConnected = true
	c.MarkTransferComplete()

	recovered := false
	c.Restart = func(string) { recovered = true }
	c.maybeRecoverFromVanish()

	if recovered {
		t.Error("vanish recovery must be suppressed once transfer_complete is set")
	}
}

func TestCloseMarksIntentional(t *testing.T) {
	c := New(Config{}, nil)
	c.Close()
	if c.State() != Closed {
		t.Errorf("State() = %v, want Closed", c.State())
	}
	if !c.intentionalClose {
		t.Error("Close should set intentionalClose")
	}
}

func TestOpenTimeoutFiresWhenChannelNeverOpens(t *testing.T) {
	c := New(Config{OpenTimeout: 10 * time.Millisecond}, nil)
	c.room = "abc123"

	var failErr error
	done := make(chan struct{})
	c.OnFailure = func(err error) {
		failErr = err
		close(done)
	}

	c.armOpenTimer()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("OnFailure was not called within the open timeout")
	}
	if !errors.Is(failErr, transfererr.ErrChannelOpenTimeout) {
		t.Errorf("got %v, want wrapped ErrChannelOpenTimeout", failErr)
	}
}

func TestOpenTimeoutSuppressedOnceChannelOpened(t *testing.T) {
	c := New(Config{OpenTimeout: 10 * time.Millisecond}, nil)
	c.room = "abc123"

	called := false
	c.OnFailure = func(error) { called = true }

	c.armOpenTimer()
	c.mu.Lock()
	c.channelOpened = true
	c.mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	if called {
		t.Error("OnFailure must not fire once the channel has opened")
	}
}

func TestOpenTimeoutSuppressedOnIntentionalClose(t *testing.T) {
	c := New(Config{OpenTimeout: 10 * time.Millisecond}, nil)
	c.room = "abc123"

	called := false
	c.OnFailure = func(error) { called = true }

	c.armOpenTimer()
	c.mu.Lock()
	c.intentionalClose = true
	c.mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	if called {
		t.Error("OnFailure must not fire once the close was intentional")
	}
}
