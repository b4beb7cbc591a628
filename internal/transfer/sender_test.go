package transfer

import "testing"

func TestNewSenderDefaultsChunkSize(t *testing.T) {
	s, err := NewSender(nil, 0)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if s.state.BaseChunkSize != DefaultChunkSize {
		t.Errorf("BaseChunkSize = %d, want %d", s.state.BaseChunkSize, DefaultChunkSize)
	}
	if s.state.BatchSize != 1 {
		t.Errorf("BatchSize = %d, want 1", s.state.BatchSize)
	}
	if s.state.YieldInterval != StartYield {
		t.Errorf("YieldInterval = %v, want %v", s.state.YieldInterval, StartYield)
	}
	if len(s.state.FileID) != 32 {
		t.Errorf("FileID = %q, want 32 hex chars", s.state.FileID)
	}
}

func TestNewSenderIDsAreUnique(t *testing.T) {
	a, _ := NewSender(nil, 0)
	b, _ := NewSender(nil, 0)
	if a.state.FileID == b.state.FileID {
		t.Error("two senders should not collide on file_id")
	}
}
