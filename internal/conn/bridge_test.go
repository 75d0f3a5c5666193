package conn

import "testing"

func TestCallMessageDescriptorHasExpectedFields(t *testing.T) {
	md, err := callMessageDescriptor()
	if err != nil {
		t.Fatalf("callMessageDescriptor failed: %v", err)
	}

	want := []string{"request_id", "kind", "recipient", "payload", "control"}
	for _, name := range want {
		if md.FindFieldByName(name) == nil {
			t.Errorf("expected BridgeCall field %q to be present", name)
		}
	}
	if got := md.GetName(); got != "BridgeCall" {
		t.Errorf("message name: got %q, want \"BridgeCall\"", got)
	}
}
