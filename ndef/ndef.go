// Package ndef decodes the NDEF message stored behind a TLV length prefix
// on a passport tag. Only Text and URI records are interpreted; every other
// record type is kept as raw bytes.
package ndef

// Well-known record type codes.
const (
	TypeText = 0x54 // "T"
	TypeURI  = 0x55 // "U"
)

// Record header flag bits.
const (
	flagME = 0x40 // message end
	flagCF = 0x20 // chunk flag
	flagSR = 0x10 // short record
	flagIL = 0x08 // id length present
)

// maxShortLength is the largest one-byte TLV length; anything above it
// selects the 3-byte length form.
const maxShortLength = 0xFE

// maxTypeLength is the longest type that fits a TypeCode.
const maxTypeLength = 8

// PayloadKind classifies a record payload by its type code.
type PayloadKind int

const (
	KindUnknown PayloadKind = iota
	KindText
	KindURI
)

func (k PayloadKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindURI:
		return "uri"
	default:
		return "unknown"
	}
}

// Record is one logical NDEF record, reassembled from chunks if needed.
type Record struct {
	TypeCode uint64
	Payload  []byte
	Kind     PayloadKind
	Text     string // decoded text for Text and URI records
}

// ParseResult is a decoded NDEF message.
type ParseResult struct {
	MessageType byte
	Length      int // declared length of the record stream
	Records     []Record
}

// header is the decoded flag byte of a record.
type header byte

func (h header) messageEnd() bool  { return h&flagME != 0 }
func (h header) chunked() bool     { return h&flagCF != 0 }
func (h header) shortRecord() bool { return h&flagSR != 0 }
func (h header) hasIDLength() bool { return h&flagIL != 0 }

// decoder walks the record stream, refusing to read past end.
type decoder struct {
	data []byte
	pos  int
	end  int
}

func (d *decoder) take(n int, field string) ([]byte, error) {
	if n < 0 || n > d.end-d.pos {
		return nil, &ParseError{Offset: d.pos, Field: field, Err: ErrTruncated}
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readByte(field string) (byte, error) {
	b, err := d.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// bigEndian folds b into an integer, most significant byte first.
func bigEndian(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// fragment is one wire record before chunk reassembly.
type fragment struct {
	hdr      header
	typeCode uint64
	hasType  bool
	payload  []byte
}

func (d *decoder) fragment() (fragment, error) {
	var f fragment

	flags, err := d.readByte("flags")
	if err != nil {
		return f, err
	}
	f.hdr = header(flags)

	typeLen, err := d.readByte("type length")
	if err != nil {
		return f, err
	}
	if typeLen > maxTypeLength {
		return f, &ParseError{Offset: d.pos - 1, Field: "type length", Err: ErrTypeTooLong}
	}

	var payloadLen uint64
	if f.hdr.shortRecord() {
		b, err := d.readByte("payload length")
		if err != nil {
			return f, err
		}
		payloadLen = uint64(b)
	} else {
		b, err := d.take(4, "payload length")
		if err != nil {
			return f, err
		}
		payloadLen = bigEndian(b)
	}

	var idLen byte
	if f.hdr.hasIDLength() {
		if idLen, err = d.readByte("id length"); err != nil {
			return f, err
		}
	}

	typ, err := d.take(int(typeLen), "type")
	if err != nil {
		return f, err
	}
	f.typeCode = bigEndian(typ)
	f.hasType = typeLen > 0

	if _, err := d.take(int(idLen), "id"); err != nil {
		return f, err
	}

	if payloadLen > uint64(d.end-d.pos) {
		return f, &ParseError{Offset: d.pos, Field: "payload", Err: ErrTruncated}
	}
	f.payload, _ = d.take(int(payloadLen), "payload")
	return f, nil
}

// Decode parses a raw tag block: a TLV type byte, a 1- or 3-byte length and
// the NDEF record stream. It never reads outside data and fails with a
// *ParseError unless exactly the declared number of bytes is consumed.
func Decode(data []byte) (*ParseResult, error) {
	if len(data) < 2 {
		return nil, &ParseError{Offset: 0, Field: "tlv", Err: ErrShortHeader}
	}

	res := &ParseResult{MessageType: data[0]}
	start := 2
	if data[1] > maxShortLength {
		if len(data) < 4 {
			return nil, &ParseError{Offset: 2, Field: "tlv length", Err: ErrShortHeader}
		}
		res.Length = int(data[2])<<8 | int(data[3])
		start = 4
	} else {
		res.Length = int(data[1])
	}

	end := start + res.Length
	if end > len(data) {
		return nil, &ParseError{Offset: len(data), Field: "message", Err: ErrTruncated}
	}

	d := &decoder{data: data, pos: start, end: end}
	var open *Record

	for d.pos < d.end {
		f, err := d.fragment()
		if err != nil {
			return nil, err
		}

		if open == nil {
			open = &Record{TypeCode: f.typeCode}
		} else if f.hasType && f.typeCode != open.TypeCode {
			// Continuation chunks normally carry no type; an explicit
			// type must match the first chunk.
			return nil, &ParseError{Offset: d.pos, Field: "chunk type", Err: ErrUnterminatedChunk}
		}
		open.Payload = append(open.Payload, f.payload...)

		if f.hdr.chunked() {
			continue
		}

		if err := open.classify(); err != nil {
			return nil, &ParseError{Offset: d.pos, Field: "payload", Err: err}
		}
		res.Records = append(res.Records, *open)
		open = nil

		if f.hdr.messageEnd() {
			break
		}
	}

	if open != nil {
		return nil, &ParseError{Offset: d.pos, Field: "chunk", Err: ErrUnterminatedChunk}
	}
	if d.pos != d.end {
		return nil, &ParseError{Offset: d.pos, Field: "message", Err: ErrLengthMismatch}
	}
	return res, nil
}

// classify sets Kind and Text from the type code and the complete payload.
func (r *Record) classify() error {
	switch r.TypeCode {
	case TypeText:
		r.Kind = KindText
		if len(r.Payload) == 0 {
			return ErrEmptyPayload
		}
		// The prefix byte counts the language code that follows it.
		skip := 1 + int(r.Payload[0])
		if skip > len(r.Payload) {
			skip = len(r.Payload)
		}
		r.Text = latin1(r.Payload[skip:])
	case TypeURI:
		r.Kind = KindURI
		if len(r.Payload) == 0 {
			return ErrEmptyPayload
		}
		r.Text = URIPrefix(r.Payload[0]) + latin1(r.Payload[1:])
	default:
		r.Kind = KindUnknown
	}
	return nil
}

// latin1 widens every byte to the rune of the same value.
func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
