package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire layout follows the legacy RIPv2 framing (RFC 2453 §4): a 4-byte
// header followed by fixed-size route entries. The address-family, route-tag,
// mask and next-hop fields of the original 20-byte entry are reserved and
// zeroed; only the destination id and metric are meaningful here.

const (
	CommandRequest  = 1
	CommandResponse = 2
	Version         = 2

	HeaderSize = 4
	RecordSize = 20

	// MaxRecords bounds one datagram at the classic 25-entry RIP limit,
	// keeping every packet within a 512-byte payload.
	MaxRecords = 25

	// Infinity is the unreachable metric (RFC 2453 §3.6).
	Infinity = 16
)

var (
	ErrMalformed  = errors.New("malformed packet")
	ErrTruncated  = fmt.Errorf("%w: shorter than header", ErrMalformed)
	ErrBadVersion = fmt.Errorf("%w: version mismatch", ErrMalformed)
	ErrBadLength  = fmt.Errorf("%w: payload not a multiple of the record size", ErrMalformed)
)

// Record is one advertised (destination, metric) pair.
type Record struct {
	Dest   uint16
	Metric uint32
}

// Packet is a decoded datagram.
type Packet struct {
	Command uint8
	Sender  uint16
	Records []Record
}

func putHeader(buf []byte, command uint8, sender uint16) {
	buf[0] = command
	buf[1] = Version
	binary.BigEndian.PutUint16(buf[2:4], sender)
}

func putRecord(buf []byte, rec Record) {
	// bytes 0..11 reserved, zeroed
	binary.BigEndian.PutUint32(buf[12:16], uint32(rec.Dest))
	binary.BigEndian.PutUint32(buf[16:20], rec.Metric)
}

// Encode builds one or more response datagrams carrying records. Entries are
// split across packets whenever a single datagram would exceed MaxRecords;
// each returned buffer is independently valid and every one must be sent.
func Encode(sender uint16, records []Record) [][]byte {
	packets := make([][]byte, 0, len(records)/MaxRecords+1)
	for {
		n := min(len(records), MaxRecords)
		buf := make([]byte, HeaderSize+n*RecordSize)
		putHeader(buf, CommandResponse, sender)
		for i, rec := range records[:n] {
			putRecord(buf[HeaderSize+i*RecordSize:], rec)
		}
		packets = append(packets, buf)
		records = records[n:]
		if len(records) == 0 {
			return packets
		}
	}
}

// Decode parses a datagram. It fails for a truncated header, a version
// mismatch, or a payload that is not a whole number of records. Individual
// records with an out-of-range metric or destination are dropped without
// failing the rest of the packet, so one misbehaving sender cannot poison a
// whole update.
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < HeaderSize {
		return nil, ErrTruncated
	}
	if buf[1] != Version {
		return nil, ErrBadVersion
	}
	if (len(buf)-HeaderSize)%RecordSize != 0 {
		return nil, ErrBadLength
	}

	pkt := &Packet{
		Command: buf[0],
		Sender:  binary.BigEndian.Uint16(buf[2:4]),
	}
	n := (len(buf) - HeaderSize) / RecordSize
	pkt.Records = make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rec := buf[HeaderSize+i*RecordSize:]
		dest := binary.BigEndian.Uint32(rec[12:16])
		metric := binary.BigEndian.Uint32(rec[16:20])
		if metric > Infinity {
			continue
		}
		if dest == 0 || dest > 64000 {
			continue
		}
		pkt.Records = append(pkt.Records, Record{Dest: uint16(dest), Metric: metric})
	}
	return pkt, nil
}
