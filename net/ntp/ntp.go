package ntp

import (
	"errors"
	"time"
)

const (
	// Seconds from Unix epoch (1970) to NTP epoch (1900), including 17 leap days
	epoch int64 = -2208988800

	nanosecondsPerSecond int64 = 1e9
	secondsPerEra        int64 = 1 << 32

	ServerPort = 123

	PacketLen = 48

	// Offset of the transmit timestamp, the only field consumed by clients
	TransmitTimeOffset = 40

	LeapIndicatorNoWarning    = 0
	LeapIndicatorInsertSecond = 1
	LeapIndicatorDeleteSecond = 2
	LeapIndicatorUnknown      = 3

	VersionMin     = 1
	VersionMax     = 4
	VersionRequest = 3

	ModeReserved0        = 0
	ModeSymmetricActive  = 1
	ModeSymmetricPassive = 2
	ModeClient           = 3
	ModeServer           = 4
	ModeBroadcast        = 5
	ModeControl          = 6
	ModeReserved7        = 7
)

type Time32 struct {
	Seconds  uint16
	Fraction uint16
}

type Time64 struct {
	Seconds  uint32
	Fraction uint32
}

type Packet struct {
	LVM            uint8
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      Time32
	RootDispersion Time32
	ReferenceID    uint32
	ReferenceTime  Time64
	OriginTime     Time64
	ReceiveTime    Time64
	TransmitTime   Time64
}

var (
	ErrTruncated          = errors.New("truncated packet")
	ErrInvalidTimestamp   = errors.New("invalid transmit timestamp")
	ErrUnexpectedResponse = errors.New("unexpected response structure")

	// Timestamps are resolved to the era window centered on this instant,
	// i.e. late 1931 through early 2068.
	eraReference = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type DecodeError struct {
	Err error
	Len int
}

func (e *DecodeError) Error() string {
	return "failed to decode packet: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func Time64FromTime(t time.Time) Time64 {
	return Time64{
		Seconds: uint32(
			t.Unix() - epoch),
		Fraction: uint32(
			int64(t.Nanosecond()) << 32 / nanosecondsPerSecond),
	}
}

// TimeFromTime64 converts an NTP timestamp to a time.Time using a reference time t0
// to resolve the NTP timestamp era ambiguity.
func TimeFromTime64(t Time64, t0 time.Time) time.Time {
	tref := t0.Unix()

	sec := epoch + (tref-epoch)/secondsPerEra*secondsPerEra + int64(t.Seconds)

	// If the timestamp would be too far in the past relative to
	// the reference time, assume it's from the next era
	if sec < tref-secondsPerEra/2 {
		sec += secondsPerEra
	}

	nsec := int64(t.Fraction) * nanosecondsPerSecond >> 32

	return time.Unix(sec, nsec).UTC()
}

func (t Time64) IsZero() bool {
	return t.Seconds == 0 && t.Fraction == 0
}

func (t Time64) Before(u Time64) bool {
	return t.Seconds < u.Seconds ||
		t.Seconds == u.Seconds && t.Fraction < u.Fraction
}

func (t Time64) After(u Time64) bool {
	return t.Seconds > u.Seconds ||
		t.Seconds == u.Seconds && t.Fraction > u.Fraction
}

func putTime32(b []byte, t Time32) {
	_ = b[3]
	b[0] = byte(t.Seconds >> 8)
	b[1] = byte(t.Seconds)
	b[2] = byte(t.Fraction >> 8)
	b[3] = byte(t.Fraction)
}

func putUint32(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putTime64(b []byte, t Time64) {
	putUint32(b[0:4], t.Seconds)
	putUint32(b[4:8], t.Fraction)
}

func time32(b []byte) Time32 {
	_ = b[3]
	return Time32{
		Seconds:  uint16(b[0])<<8 | uint16(b[1]),
		Fraction: uint16(b[2])<<8 | uint16(b[3]),
	}
}

func uint32At(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func time64(b []byte) Time64 {
	return Time64{
		Seconds:  uint32At(b[0:4]),
		Fraction: uint32At(b[4:8]),
	}
}

func EncodePacket(b *[]byte, pkt *Packet) {
	if cap(*b) < PacketLen {
		*b = make([]byte, PacketLen)
	} else {
		*b = (*b)[:PacketLen]
	}

	buf := *b
	_ = buf[47]
	buf[0] = byte(pkt.LVM)
	buf[1] = byte(pkt.Stratum)
	buf[2] = byte(pkt.Poll)
	buf[3] = byte(pkt.Precision)
	putTime32(buf[4:8], pkt.RootDelay)
	putTime32(buf[8:12], pkt.RootDispersion)
	putUint32(buf[12:16], pkt.ReferenceID)
	putTime64(buf[16:24], pkt.ReferenceTime)
	putTime64(buf[24:32], pkt.OriginTime)
	putTime64(buf[32:40], pkt.ReceiveTime)
	putTime64(buf[40:48], pkt.TransmitTime)
}

func DecodePacket(pkt *Packet, b []byte) error {
	if len(b) < PacketLen {
		return &DecodeError{Err: ErrTruncated, Len: len(b)}
	}

	_ = b[47]
	pkt.LVM = uint8(b[0])
	pkt.Stratum = uint8(b[1])
	pkt.Poll = int8(b[2])
	pkt.Precision = int8(b[3])
	pkt.RootDelay = time32(b[4:8])
	pkt.RootDispersion = time32(b[8:12])
	pkt.ReferenceID = uint32At(b[12:16])
	pkt.ReferenceTime = time64(b[16:24])
	pkt.OriginTime = time64(b[24:32])
	pkt.ReceiveTime = time64(b[32:40])
	pkt.TransmitTime = time64(b[40:48])

	return nil
}

// NewRequestPacket returns a version 3 client mode request with every other
// field zeroed.
func NewRequestPacket() Packet {
	var pkt Packet
	pkt.SetLeapIndicator(LeapIndicatorNoWarning)
	pkt.SetVersion(VersionRequest)
	pkt.SetMode(ModeClient)
	return pkt
}

func EncodeRequest() []byte {
	pkt := NewRequestPacket()
	var b []byte
	EncodePacket(&b, &pkt)
	return b
}

// TransmitTimestamp returns the server's transmit timestamp as calendar time.
func (p *Packet) TransmitTimestamp() (time.Time, error) {
	if p.TransmitTime.IsZero() {
		return time.Time{}, &DecodeError{Err: ErrInvalidTimestamp, Len: PacketLen}
	}
	return TimeFromTime64(p.TransmitTime, eraReference), nil
}

func DecodeResponse(b []byte) (time.Time, error) {
	var pkt Packet
	err := DecodePacket(&pkt, b)
	if err != nil {
		return time.Time{}, err
	}
	return pkt.TransmitTimestamp()
}

func (p *Packet) LeapIndicator() uint8 {
	return (p.LVM >> 6) & 0b0000_0011
}

func (p *Packet) SetLeapIndicator(l uint8) {
	if l&0b0000_0011 != l {
		panic("unexpected NTP leap indicator value")
	}
	p.LVM = (p.LVM & 0b0011_1111) | (l << 6)
}

func (p *Packet) Version() uint8 {
	return (p.LVM >> 3) & 0b0000_0111
}

func (p *Packet) SetVersion(v uint8) {
	if v&0b0000_0111 != v {
		panic("unexpected NTP version value")
	}
	p.LVM = (p.LVM & 0b_1100_0111) | (v << 3)
}

func (p *Packet) Mode() uint8 {
	return p.LVM & 0b0000_0111
}

func (p *Packet) SetMode(m uint8) {
	if m&0b0000_0111 != m {
		panic("unexpected NTP mode value")
	}
	p.LVM = (p.LVM & 0b1111_1000) | m
}
