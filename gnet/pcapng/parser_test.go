package pcapng

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// makeBlock lays out tag, total and fields (which start at block offset 8), zero
// fills up to the padded span and ends with the repeated length word.
func makeBlock(tag uint32, total uint32, fields []byte) []byte {
	span := int(paddedLen(total))
	buf := make([]byte, span)
	binary.LittleEndian.PutUint32(buf[0:4], tag)
	binary.LittleEndian.PutUint32(buf[4:8], total)
	copy(buf[8:span-4], fields)
	binary.LittleEndian.PutUint32(buf[span-4:], total)
	return buf
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func concat(parts ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(p)
	}
	return buf.Bytes()
}

func enhancedPacketFields(ifID uint32, ts uint64, capLen, origLen uint32, content []byte) []byte {
	return concat(le32(ifID), le64(ts), le32(capLen), le32(origLen), content)
}

func TestParseCaptureSingleHeader(t *testing.T) {
	buf := makeBlock(uint32(SectionHeaderBlockType), 12, nil)
	if len(buf) != 12 {
		t.Fatalf("unexpected block size %d", len(buf))
	}

	records, err := ParseCapture(buf)
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if _, ok := records[0].(*HeaderRecord); !ok {
		t.Fatalf("expected HeaderRecord, got %T", records[0])
	}

	blocks, err := Blocks(buf)
	if err != nil {
		t.Fatalf("Blocks failed: %v", err)
	}
	if len(blocks) != 1 || len(blocks[0].Data) != 12 {
		t.Fatalf("expected one 12 byte span, got %+v", blocks)
	}
}

func TestParseCaptureEmpty(t *testing.T) {
	records, err := ParseCapture(nil)
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", records)
	}
}

func TestPaddedSpan(t *testing.T) {
	for total := uint32(12); total < 40; total++ {
		want := int(total)
		if rem := total % 4; rem != 0 {
			want = int(total + 4 - rem)
		}

		buf := concat(
			makeBlock(uint32(SectionHeaderBlockType), total, nil),
			makeBlock(uint32(PacketBlockType), 12, nil),
		)
		blocks, err := Blocks(buf)
		if err != nil {
			t.Fatalf("length %d: Blocks failed: %v", total, err)
		}
		if len(blocks) != 2 {
			t.Fatalf("length %d: expected 2 blocks, got %d", total, len(blocks))
		}
		if len(blocks[0].Data) != want {
			t.Fatalf("length %d: consumed %d, want %d", total, len(blocks[0].Data), want)
		}
		if blocks[1].Offset != want {
			t.Fatalf("length %d: next block at %d, want %d", total, blocks[1].Offset, want)
		}
		if len(blocks[0].Body()) != want-4 {
			t.Fatalf("length %d: body %d, want %d", total, len(blocks[0].Body()), want-4)
		}

		records, err := ParseCapture(buf)
		if err != nil {
			t.Fatalf("length %d: ParseCapture failed: %v", total, err)
		}
		if _, ok := records[1].(*PacketRecord); !ok {
			t.Fatalf("length %d: expected PacketRecord second, got %T", total, records[1])
		}
	}
}

func TestParseCaptureOrdering(t *testing.T) {
	// options region is body[12:20]
	idb := makeBlock(uint32(InterfaceDescriptionBlockType), 24, concat(le32(0xDEADBEEF), le32(0x01020304), le32(0x05060708)))
	epb1 := makeBlock(uint32(EnhancedPacketBlockType), 36, enhancedPacketFields(0, 100, 4, 60, []byte{1, 2, 3, 4}))
	epb2 := makeBlock(uint32(EnhancedPacketBlockType), 40, enhancedPacketFields(1, 200, 8, 8, []byte{9, 8, 7, 6, 5, 4, 3, 2}))

	records, err := ParseCapture(concat(idb, epb1, epb2))
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	iface, ok := records[0].(*InterfaceDescriptionRecord)
	if !ok {
		t.Fatalf("expected InterfaceDescriptionRecord, got %T", records[0])
	}
	// link type overlaps the low half of the length word
	if iface.LinkType != 24 {
		t.Fatalf("unexpected link type %d", iface.LinkType)
	}
	if iface.SnapLen != 0xDEADBEEF {
		t.Fatalf("unexpected snap len %#x", iface.SnapLen)
	}
	if !iface.Options.Equal(concat(le32(0x01020304), le32(0x05060708))) {
		t.Fatalf("unexpected options %s", iface.Options)
	}

	first, ok := records[1].(*EnhancedPacketRecord)
	if !ok {
		t.Fatalf("expected EnhancedPacketRecord, got %T", records[1])
	}
	if first.InterfaceID != 0 || first.Timestamp != 100 || first.CapturedLen != 4 || first.OriginalLen != 60 {
		t.Fatalf("unexpected first packet %+v", first)
	}
	second, ok := records[2].(*EnhancedPacketRecord)
	if !ok {
		t.Fatalf("expected EnhancedPacketRecord, got %T", records[2])
	}
	if second.InterfaceID != 1 || second.Timestamp != 200 || !second.Content.Equal([]byte{9, 8, 7, 6, 5, 4, 3, 2}) {
		t.Fatalf("unexpected second packet %+v", second)
	}
}

func TestParseEnhancedPacketFields(t *testing.T) {
	content := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	buf := makeBlock(uint32(EnhancedPacketBlockType), 36, enhancedPacketFields(1, 0x0102030405060708, 4, 4, content))

	records, err := ParseCapture(buf)
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	epb, ok := records[0].(*EnhancedPacketRecord)
	if !ok {
		t.Fatalf("expected EnhancedPacketRecord, got %T", records[0])
	}
	if epb.InterfaceID != 1 {
		t.Fatalf("interface id mismatch: %d", epb.InterfaceID)
	}
	if epb.Timestamp != 0x0102030405060708 {
		t.Fatalf("timestamp mismatch: %#x", epb.Timestamp)
	}
	if epb.CapturedLen != 4 || epb.OriginalLen != 4 {
		t.Fatalf("length mismatch: %d/%d", epb.CapturedLen, epb.OriginalLen)
	}
	if !bytes.Equal(epb.Content.Bytes(), content) {
		t.Fatalf("content mismatch: %x", epb.Content.Bytes())
	}
	if epb.Truncated() {
		t.Fatalf("packet should not be truncated")
	}
}

func TestParseCaptureSimpleVariants(t *testing.T) {
	buf := concat(
		makeBlock(uint32(PacketBlockType), 16, nil),
		makeBlock(uint32(SimplePacketBlockType), 16, nil),
		makeBlock(uint32(NameResolutionBlockType), 16, nil),
		makeBlock(uint32(InterfaceStatisticsBlockType), 16, nil),
	)
	records, err := ParseCapture(buf)
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	want := []BlockType{PacketBlockType, SimplePacketBlockType, NameResolutionBlockType, InterfaceStatisticsBlockType}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, rec := range records {
		if rec.BlockType() != want[i] {
			t.Fatalf("record %d: got %s, want %s", i, rec.BlockType(), want[i])
		}
	}
}

func TestParseCaptureUnknownBlockType(t *testing.T) {
	buf := concat(
		makeBlock(uint32(SectionHeaderBlockType), 12, nil),
		makeBlock(0xFFFFFFFF, 12, nil),
	)
	records, err := ParseCapture(buf)
	if !errors.Is(err, ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records, got %d", len(records))
	}

	var blockErr *BlockError
	if !errors.As(err, &blockErr) {
		t.Fatalf("expected *BlockError, got %T", err)
	}
	if blockErr.Offset != 12 || blockErr.Type != 0xFFFFFFFF {
		t.Fatalf("unexpected error location %+v", blockErr)
	}
}

func TestParseCaptureDegenerateLength(t *testing.T) {
	for _, total := range []uint32{0, 1, 4} {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(SectionHeaderBlockType))
		binary.LittleEndian.PutUint32(buf[4:8], total)

		_, err := ParseCapture(buf)
		if !errors.Is(err, ErrDegenerateLength) {
			t.Fatalf("length %d: expected ErrDegenerateLength, got %v", total, err)
		}
	}
}

func TestParseCaptureTruncated(t *testing.T) {
	header := makeBlock(uint32(SectionHeaderBlockType), 12, nil)

	cases := map[string][]byte{
		"short tail":       concat(header, []byte{1, 2, 3, 4, 5}),
		"length past end":  concat(header, makeBlock(uint32(SectionHeaderBlockType), 32, nil)[:20]),
		"short idb":        makeBlock(uint32(InterfaceDescriptionBlockType), 12, nil),
		"short epb":        makeBlock(uint32(EnhancedPacketBlockType), 24, nil),
		"single byte":      {0x0A},
		"huge declaration": concat(le32(uint32(SectionHeaderBlockType)), le32(0xFFFFFFFF), le32(0)),
	}
	for name, buf := range cases {
		records, err := ParseCapture(buf)
		if !errors.Is(err, ErrTruncatedInput) {
			t.Fatalf("%s: expected ErrTruncatedInput, got %v", name, err)
		}
		if records != nil {
			t.Fatalf("%s: expected no records", name)
		}
	}
}

func TestParseCaptureFuncStops(t *testing.T) {
	buf := concat(
		makeBlock(uint32(SectionHeaderBlockType), 12, nil),
		makeBlock(uint32(PacketBlockType), 12, nil),
		makeBlock(uint32(PacketBlockType), 12, nil),
	)
	stop := errors.New("stop")
	seen := 0
	err := ParseCaptureFunc(buf, func(rec Record) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Fatalf("expected callback error, got %v", err)
	}
	if seen != 2 {
		t.Fatalf("expected 2 callbacks, got %d", seen)
	}
}

func TestOpaqueBytesOwned(t *testing.T) {
	buf := makeBlock(uint32(EnhancedPacketBlockType), 36, enhancedPacketFields(0, 0, 4, 4, []byte{1, 2, 3, 4}))
	records, err := ParseCapture(buf)
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	for i := range buf {
		buf[i] = 0
	}
	epb := records[0].(*EnhancedPacketRecord)
	if !epb.Content.Equal([]byte{1, 2, 3, 4}) {
		t.Fatalf("content aliased the input buffer: %x", epb.Content.Bytes())
	}
	out := epb.Content.Bytes()
	out[0] = 0xFF
	if !epb.Content.Equal([]byte{1, 2, 3, 4}) {
		t.Fatalf("Bytes leaked internal storage")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewWriter(&buf, WithBuffer(64))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteSectionHeader(); err != nil {
		t.Fatalf("WriteSectionHeader failed: %v", err)
	}
	ifaceID, err := writer.AddInterface(1, 65535)
	if err != nil {
		t.Fatalf("AddInterface failed: %v", err)
	}

	ts1 := time.Unix(1_710_000_000, 123456000).UTC()
	ts2 := ts1.Add(3 * time.Millisecond)
	payload1 := []byte{0x01, 0x02, 0x03, 0x04}
	payload2 := []byte{0xAA, 0xBB, 0xCC}

	if err := writer.WritePacket(ifaceID, payload1, ts1); err != nil {
		t.Fatalf("WritePacket failed: %v", err)
	}
	if err := writer.WritePacket(ifaceID, payload2, ts2); err != nil {
		t.Fatalf("WritePacket failed: %v", err)
	}
	if err := writer.WritePacket(7, payload2, ts2); err == nil {
		t.Fatalf("expected error for unknown interface")
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	records, err := ParseCapture(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if _, ok := records[0].(*HeaderRecord); !ok {
		t.Fatalf("expected HeaderRecord, got %T", records[0])
	}
	iface, ok := records[1].(*InterfaceDescriptionRecord)
	if !ok {
		t.Fatalf("expected InterfaceDescriptionRecord, got %T", records[1])
	}
	opts, err := iface.OptionList()
	if err != nil {
		t.Fatalf("OptionList failed: %v", err)
	}
	if len(opts) != 0 {
		t.Fatalf("expected no options, got %+v", opts)
	}

	for i, tc := range []struct {
		payload []byte
		ts      time.Time
	}{{payload1, ts1}, {payload2, ts2}} {
		epb, ok := records[2+i].(*EnhancedPacketRecord)
		if !ok {
			t.Fatalf("expected EnhancedPacketRecord, got %T", records[2+i])
		}
		if !bytes.Equal(epb.Data(), tc.payload) {
			t.Fatalf("payload mismatch: %x", epb.Data())
		}
		if epb.CapturedLen != uint32(len(tc.payload)) {
			t.Fatalf("captured length mismatch: %d", epb.CapturedLen)
		}
		if got, ok := epb.Time(time.Microsecond); !ok || !got.Equal(tc.ts) {
			t.Fatalf("timestamp mismatch: got %v want %v", got, tc.ts)
		}
	}
}

func TestWriterNanosecondInterface(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewWriter(&buf, WithDefaultTimestampResolution(time.Nanosecond))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := writer.AddInterface(1, 0, Option{Code: OptName, Value: []byte("eth0")}); err != nil {
		t.Fatalf("AddInterface failed: %v", err)
	}
	ts := time.Unix(1_720_000_000, 654321987).UTC()
	if err := writer.WritePacket(0, []byte{0x10, 0x20, 0x30}, ts); err != nil {
		t.Fatalf("WritePacket failed: %v", err)
	}

	records, err := ParseCapture(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseCapture failed: %v", err)
	}
	opts, err := records[0].(*InterfaceDescriptionRecord).OptionList()
	if err != nil {
		t.Fatalf("OptionList failed: %v", err)
	}
	if len(opts) != 2 || opts[0].Code != OptName || string(opts[0].Value) != "eth0" || opts[1].Code != OptTsResol {
		t.Fatalf("unexpected options %+v", opts)
	}
	idb := records[0].(*InterfaceDescriptionRecord)
	if res := idb.TimestampResolution(); res != time.Nanosecond {
		t.Fatalf("expected nanosecond resolution, got %v", res)
	}
	epb := records[1].(*EnhancedPacketRecord)
	if got, ok := epb.Time(idb.TimestampResolution()); !ok || !got.Equal(ts) {
		t.Fatalf("timestamp mismatch: got %v want %v", got, ts)
	}
}

func TestWriteRawBlockPadding(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteRawBlock(NameResolutionBlockType, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteRawBlock failed: %v", err)
	}
	if buf.Len() != 16 {
		t.Fatalf("expected padded block of 16 bytes, got %d", buf.Len())
	}
	if got := binary.LittleEndian.Uint32(buf.Bytes()[4:8]); got != 15 {
		t.Fatalf("expected declared length 15, got %d", got)
	}

	blocks, err := Blocks(buf.Bytes())
	if err != nil {
		t.Fatalf("Blocks failed: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Length != 15 || len(blocks[0].Data) != 16 {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestEnhancedPacketTimeRange(t *testing.T) {
	swap := func(ticks uint64) uint64 { return ticks<<32 | ticks>>32 }

	epb := &EnhancedPacketRecord{Timestamp: 0xFFFFFFFFFFFFFFFF}
	if got, ok := epb.Time(time.Microsecond); ok || !got.IsZero() {
		t.Fatalf("expected out of range, got %v", got)
	}
	if _, ok := epb.Time(time.Second); ok {
		t.Fatal("expected out of range at second resolution")
	}

	last := uint64(MaxUnixSeconds)*1_000_000 + 999_999
	epb.Timestamp = swap(last)
	got, ok := epb.Time(time.Microsecond)
	if !ok || got.Year() != 9999 {
		t.Fatalf("expected year 9999, got %v ok=%v", got, ok)
	}
	epb.Timestamp = swap(last + 1)
	if _, ok := epb.Time(time.Microsecond); ok {
		t.Fatal("expected out of range one tick past the limit")
	}

	epb.Timestamp = swap(90)
	if got, ok := epb.Time(time.Second); !ok || !got.Equal(time.Unix(90, 0)) {
		t.Fatalf("unexpected second resolution time %v", got)
	}
}

func TestWriteSectionHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteSectionHeader(); err != nil {
		t.Fatalf("WriteSectionHeader failed: %v", err)
	}
	b := buf.Bytes()
	if len(b) != 32 {
		t.Fatalf("expected 32 byte header with end-of-options, got %d", len(b))
	}
	if got := binary.LittleEndian.Uint32(b[8:12]); got != ByteOrderMagic {
		t.Fatalf("unexpected byte order magic %#x", got)
	}
	if major, minor := binary.LittleEndian.Uint16(b[12:14]), binary.LittleEndian.Uint16(b[14:16]); major != 1 || minor != 0 {
		t.Fatalf("unexpected version %d.%d", major, minor)
	}
	if got := binary.LittleEndian.Uint64(b[16:24]); got != 0xFFFFFFFFFFFFFFFF {
		t.Fatalf("unexpected section length %#x", got)
	}

	if err := writer.WritePacket(0, []byte{1}, time.Time{}); err == nil {
		t.Fatal("expected error for packet on unknown interface")
	}
}
