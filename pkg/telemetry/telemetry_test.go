package telemetry

import "testing"

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	if err := p.PublishConnectionCount(3); err != nil {
		t.Fatalf("PublishConnectionCount on nil: %v", err)
	}
	if err := p.PublishFrame(10); err != nil {
		t.Fatalf("PublishFrame on nil: %v", err)
	}
	if err := p.PublishTransferProgress(1, 100); err != nil {
		t.Fatalf("PublishTransferProgress on nil: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestNewPublisherEmptyAddrDisables(t *testing.T) {
	p, err := NewPublisher("", "tes:events")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil publisher for empty addr")
	}
}
