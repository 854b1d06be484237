package link

import (
	"net"
	"testing"
)

func testInterfaces() []Interface {
	return []Interface{
		{Name: "eth0", Index: 2, HardwareAddr: net.HardwareAddr{0, 1, 2, 3, 4, 5}},
		{Name: "eth1", Index: 3, HardwareAddr: net.HardwareAddr{0, 1, 2, 3, 4, 6}},
	}
}

func TestByIndexFound(t *testing.T) {
	t.Parallel()

	ifi, ok := ByIndex(testInterfaces(), 3)
	if !ok {
		t.Fatal("expected to find interface at index 3")
	}
	if ifi.Name != "eth1" {
		t.Errorf("Name = %q, want eth1", ifi.Name)
	}
}

func TestByIndexMissing(t *testing.T) {
	t.Parallel()

	if _, ok := ByIndex(testInterfaces(), 99); ok {
		t.Fatal("expected miss for unknown index")
	}
}

func TestByNameFound(t *testing.T) {
	t.Parallel()

	ifi, ok := ByName(testInterfaces(), "eth0")
	if !ok {
		t.Fatal("expected to find eth0")
	}
	if ifi.Index != 2 {
		t.Errorf("Index = %d, want 2", ifi.Index)
	}
}

func TestByNameMissing(t *testing.T) {
	t.Parallel()

	if _, ok := ByName(testInterfaces(), "eth9"); ok {
		t.Fatal("expected miss for unknown name")
	}
}
