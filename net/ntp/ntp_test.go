package ntp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"example.com/ntp-clock/net/ntp"
)

func within(t0, t1 time.Time, d time.Duration) bool {
	diff := t1.Sub(t0)
	return -d <= diff && diff <= d
}

func TestTime64Conversion(t *testing.T) {
	t0 := time.Now().UTC()
	t64 := ntp.Time64FromTime(t0)
	t1 := ntp.TimeFromTime64(t64, t0)

	if !within(t0, t1, time.Nanosecond) {
		t.Errorf("t1 and t0 must be equal within 1ns: %v, %v", t0, t1)
	}
}

func TestBeforeAfter(t *testing.T) {
	t0 := ntp.Time64{Seconds: 10, Fraction: 0}
	t1 := ntp.Time64{Seconds: 20, Fraction: 0}
	t2 := ntp.Time64{Seconds: 10, Fraction: 100}
	t3 := ntp.Time64{Seconds: 10, Fraction: 200}

	if !t0.Before(t1) {
		t.Errorf("t0 must be before t1")
	}
	if t1.Before(t0) {
		t.Errorf("t1 must not be before t0")
	}
	if !t1.After(t0) {
		t.Errorf("t1 must be after t0")
	}
	if t0.After(t1) {
		t.Errorf("t0 must not be after t1")
	}
	if !t2.Before(t3) {
		t.Errorf("t2 must be before t3")
	}
	if !t3.After(t2) {
		t.Errorf("t3 must be after t2")
	}
	if t0.Before(t0) || t0.After(t0) {
		t.Errorf("t0 must be neither before nor after itself")
	}
}

func TestLVMRoundTrip(t *testing.T) {
	var pkt ntp.Packet
	for li := uint8(0); li <= 3; li++ {
		for vn := uint8(0); vn <= 7; vn++ {
			for mode := uint8(0); mode <= 7; mode++ {
				pkt.SetLeapIndicator(li)
				pkt.SetVersion(vn)
				pkt.SetMode(mode)
				if pkt.LeapIndicator() != li || pkt.Version() != vn || pkt.Mode() != mode {
					t.Errorf("LVM round trip failed for li=%d, vn=%d, mode=%d: got %d, %d, %d",
						li, vn, mode, pkt.LeapIndicator(), pkt.Version(), pkt.Mode())
				}
			}
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("SetVersion with out of range value did not panic")
		}
	}()
	pkt.SetVersion(8)
}

func TestEncodeRequest(t *testing.T) {
	b := ntp.EncodeRequest()
	if len(b) != ntp.PacketLen {
		t.Fatalf("len(request) = %d, want %d", len(b), ntp.PacketLen)
	}
	if b[0] != 0x1b {
		t.Errorf("request[0] = %#x, want 0x1b", b[0])
	}
	for i := 1; i != len(b); i++ {
		if b[i] != 0 {
			t.Errorf("request[%d] = %#x, want 0", i, b[i])
		}
	}

	var l layers.NTP
	err := l.DecodeFromBytes(b, gopacket.NilDecodeFeedback)
	if err != nil {
		t.Fatalf("gopacket failed to decode request: %v", err)
	}
	if l.Version != 3 || l.Mode != 3 || l.LeapIndicator != 0 {
		t.Errorf("gopacket decoded request as li=%d, vn=%d, mode=%d",
			l.LeapIndicator, l.Version, l.Mode)
	}
}

func TestDecodeResponseRoundTrip(t *testing.T) {
	tests := []time.Time{
		time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 12, 30, 15, 123456789, time.UTC),
		time.Now().UTC(),
		time.Date(2036, time.February, 7, 6, 28, 15, 999999999, time.UTC),
		time.Date(2036, time.February, 7, 7, 0, 0, 0, time.UTC),
		time.Date(2060, time.December, 31, 23, 59, 59, 500000000, time.UTC),
	}

	for _, want := range tests {
		pkt := ntp.Packet{TransmitTime: ntp.Time64FromTime(want)}
		pkt.SetVersion(3)
		pkt.SetMode(ntp.ModeServer)
		var b []byte
		ntp.EncodePacket(&b, &pkt)

		got, err := ntp.DecodeResponse(b)
		if err != nil {
			t.Errorf("DecodeResponse(%v) failed: %v", want, err)
			continue
		}
		if !within(want, got, time.Nanosecond) {
			t.Errorf("DecodeResponse() = %v, want %v", got, want)
		}
		if got.Location() != time.UTC {
			t.Errorf("DecodeResponse() returned location %v, want UTC", got.Location())
		}
	}
}

func TestDecodeResponseFromGopacket(t *testing.T) {
	want := time.Date(2025, time.July, 4, 9, 15, 0, 250000000, time.UTC)
	t64 := ntp.Time64FromTime(want)

	l := layers.NTP{
		LeapIndicator:     0,
		Version:           4,
		Mode:              4,
		Stratum:           2,
		TransmitTimestamp: layers.NTPTimestamp(uint64(t64.Seconds)<<32 | uint64(t64.Fraction)),
	}
	buf := gopacket.NewSerializeBuffer()
	err := l.SerializeTo(buf, gopacket.SerializeOptions{})
	if err != nil {
		t.Fatalf("gopacket failed to serialize response: %v", err)
	}

	var pkt ntp.Packet
	err = ntp.DecodePacket(&pkt, buf.Bytes())
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if pkt.Version() != 4 || pkt.Mode() != ntp.ModeServer || pkt.Stratum != 2 {
		t.Errorf("unexpected metadata: vn=%d, mode=%d, stratum=%d",
			pkt.Version(), pkt.Mode(), pkt.Stratum)
	}
	got, err := pkt.TransmitTimestamp()
	if err != nil {
		t.Fatalf("TransmitTimestamp failed: %v", err)
	}
	if !within(want, got, time.Nanosecond) {
		t.Errorf("TransmitTimestamp() = %v, want %v", got, want)
	}
}

func TestDecodeResponseTruncated(t *testing.T) {
	for _, n := range []int{0, 1, ntp.TransmitTimeOffset, ntp.PacketLen - 1} {
		_, err := ntp.DecodeResponse(make([]byte, n))
		if !errors.Is(err, ntp.ErrTruncated) {
			t.Errorf("DecodeResponse(len %d) = %v, want ErrTruncated", n, err)
		}
		var derr *ntp.DecodeError
		if !errors.As(err, &derr) || derr.Len != n {
			t.Errorf("DecodeResponse(len %d) returned %#v, want *DecodeError with Len %d", n, err, n)
		}
	}
}

func TestDecodeResponseZeroTransmitTime(t *testing.T) {
	b := make([]byte, ntp.PacketLen)
	b[0] = 0x1c
	_, err := ntp.DecodeResponse(b)
	if !errors.Is(err, ntp.ErrInvalidTimestamp) {
		t.Errorf("DecodeResponse() = %v, want ErrInvalidTimestamp", err)
	}
}

func TestDecodeResponseTrailingBytes(t *testing.T) {
	want := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)
	pkt := ntp.Packet{TransmitTime: ntp.Time64FromTime(want)}
	var b []byte
	ntp.EncodePacket(&b, &pkt)
	b = append(b, make([]byte, 20)...)

	got, err := ntp.DecodeResponse(b)
	if err != nil {
		t.Fatalf("DecodeResponse() failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("DecodeResponse() = %v, want %v", got, want)
	}
}

func TestValidateResponseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		li      uint8
		vn      uint8
		mode    uint8
		stratum uint8
		valid   bool
	}{
		{"v3 server", ntp.LeapIndicatorNoWarning, 3, ntp.ModeServer, 2, true},
		{"v4 server", ntp.LeapIndicatorInsertSecond, 4, ntp.ModeServer, 1, true},
		{"unsynchronized", ntp.LeapIndicatorUnknown, 4, ntp.ModeServer, 2, false},
		{"v2", ntp.LeapIndicatorNoWarning, 2, ntp.ModeServer, 2, false},
		{"client mode", ntp.LeapIndicatorNoWarning, 4, ntp.ModeClient, 2, false},
		{"kiss of death", ntp.LeapIndicatorNoWarning, 4, ntp.ModeServer, 0, false},
		{"stratum 16", ntp.LeapIndicatorNoWarning, 4, ntp.ModeServer, 16, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt := ntp.Packet{Stratum: tt.stratum}
			pkt.SetLeapIndicator(tt.li)
			pkt.SetVersion(tt.vn)
			pkt.SetMode(tt.mode)
			err := ntp.ValidateResponseMetadata(&pkt)
			if tt.valid && err != nil {
				t.Errorf("ValidateResponseMetadata() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ntp.ErrUnexpectedResponse) {
				t.Errorf("ValidateResponseMetadata() = %v, want ErrUnexpectedResponse", err)
			}
		})
	}
}
