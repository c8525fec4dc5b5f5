package fabric

import "testing"

func TestName(t *testing.T) {
	cases := []struct {
		dpid   DPID
		want   string
		wantOK bool
	}{
		{0x000305, "Core Switch 4", true},
		{0x000001, "Core Switch 0", true},
		{0x010203, "Aggregation Switch, pod: 2 switch: 3", true},
		{0x020001, "Edge Switch, pod: 0 switch: 1", true},
		{0x030000, "Internet", true},
		{0x040101, "", false},
		{0xff0000, "", false},
	}
	for _, tc := range cases {
		got, ok := Name(tc.dpid)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("Name(%#x): got (%q, %v), want (%q, %v)", uint64(tc.dpid), got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestName_IsPure(t *testing.T) {
	for _, d := range []DPID{0x000305, 0x010203, 0x070000} {
		a, okA := Name(d)
		b, okB := Name(d)
		if a != b || okA != okB {
			t.Fatalf("Name(%#x) not stable: (%q,%v) vs (%q,%v)", uint64(d), a, okA, b, okB)
		}
	}
}

func TestDecodeFields(t *testing.T) {
	id, ok := Decode(0x020a0b)
	if !ok {
		t.Fatal("edge switch should decode")
	}
	if id.Layer != LayerEdge || id.Pod != 10 || id.Index != 11 {
		t.Fatalf("identity: got %+v", id)
	}
	if id.Layer.String() != "edge" {
		t.Fatalf("layer string: got %q", id.Layer.String())
	}
}

func TestParseDPID(t *testing.T) {
	d, err := ParseDPID("773")
	if err != nil {
		t.Fatalf("ParseDPID: %v", err)
	}
	if d != 0x000305 {
		t.Fatalf("got %d, want %d", d, 0x000305)
	}
	if d.String() != "773" {
		t.Fatalf("String: got %q", d.String())
	}
	if _, err := ParseDPID("0x12"); err == nil {
		t.Fatal("expected error for non-decimal input")
	}
	if _, err := ParseDPID("-1"); err == nil {
		t.Fatal("expected error for negative input")
	}
}
