package wire

import "testing"

func TestRoleRecordRoundTrip(t *testing.T) {
	cases := []RoleRecord{
		{DeviceID: 0, ServiceIndex: 0, ServiceClass: 0, Name: []byte("a")},
		{DeviceID: 0x0102030405060708, ServiceIndex: 3, ServiceClass: 0xdeadbeef, Name: []byte("thermometer-1")},
		{DeviceID: 1, ServiceIndex: 255, ServiceClass: 1, Name: nil},
	}
	for _, want := range cases {
		buf := make([]byte, want.Size())
		n := want.Encode(buf)
		if n != len(buf) {
			t.Fatalf("Encode wrote %d bytes, want %d", n, len(buf))
		}
		got, ok := DecodeRoleRecord(buf)
		if !ok {
			t.Fatalf("DecodeRoleRecord failed on %+v", want)
		}
		if got.DeviceID != want.DeviceID || got.ServiceIndex != want.ServiceIndex ||
			got.ServiceClass != want.ServiceClass || string(got.Name) != string(want.Name) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestDecodeRoleRecordTooShort(t *testing.T) {
	if _, ok := DecodeRoleRecord(make([]byte, RoleRecordHeaderSize-1)); ok {
		t.Fatal("expected decode failure on truncated buffer")
	}
}
