package device

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/ubxctl/internal/config"
	"github.com/danmuck/ubxctl/internal/protocol/frame"
	"github.com/danmuck/ubxctl/internal/protocol/layout"
	"github.com/danmuck/ubxctl/internal/testutil/testlog"
)

const definitions = `
class:
  - id: 0x01
    name: TEST_CLS
    message:
      - id: 0x01
        name: TEST_MSG
        fields:
          - {name: F1, type: U1}
          - {name: F2, type: X1, flags: [{name: SF1, start: 0, stop: 4}, {name: SF2, start: 4, stop: 8}]}
          - name: RB
            fields:
              - {name: RF1, type: U2}
`

var testFrame = []byte{0xB5, 0x62, 0x01, 0x01, 0x06, 0x00, 0x0A, 0x21, 0x64, 0x00, 0xC8, 0x00, 0x5F, 0x44}

type loopback struct {
	in     *bytes.Reader
	out    bytes.Buffer
	closed bool
}

func (l *loopback) Read(b []byte) (int, error)  { return l.in.Read(b) }
func (l *loopback) Write(b []byte) (int, error) { return l.out.Write(b) }
func (l *loopback) Close() error {
	l.closed = true
	return nil
}

func testParser(t *testing.T) *frame.Parser {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.yaml")
	if err := os.WriteFile(path, []byte(definitions), 0o600); err != nil {
		t.Fatalf("write definitions: %v", err)
	}
	cfg := config.Default()
	cfg.Definitions = []string{path}
	cfg.Transport = config.Transport{Kind: config.KindFile, Path: path}
	d, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	return d.Parser()
}

func TestReceiveAndTransfer(t *testing.T) {
	testlog.Start(t)
	garbage := []byte{0x00, 0xB5, 0x00}
	rw := &loopback{in: bytes.NewReader(append(garbage, testFrame...))}
	d := New(rw, testParser(t), WithName("loop"))

	msg, err := d.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.Class != "TEST_CLS" || msg.Name != "TEST_MSG" || msg.Fields["F1"] != uint8(10) {
		t.Fatalf("unexpected message %+v", msg)
	}
	if d.src.n != len(garbage)+len(testFrame) {
		t.Fatalf("expected %d bytes consumed, got %d", len(garbage)+len(testFrame), d.src.n)
	}

	if err := d.Transfer(msg); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !bytes.Equal(rw.out.Bytes(), testFrame) {
		t.Fatalf("expected % x, got % x", testFrame, rw.out.Bytes())
	}

	if _, err := d.Receive(); !errors.Is(err, frame.ErrShortRead) || !errors.Is(err, io.EOF) {
		t.Fatalf("expected short read at EOF, got %v", err)
	}
	if err := d.Close(); err != nil || !rw.closed {
		t.Fatalf("close not forwarded")
	}
}

// truncating accepts all but the last byte of each write.
type truncating struct {
	loopback
	writes int
}

func (w *truncating) Write(b []byte) (int, error) {
	w.writes++
	return w.out.Write(b[:len(b)-1])
}

func TestTransferSingleWriteAndShortWrite(t *testing.T) {
	testlog.Start(t)
	rw := &truncating{loopback: loopback{in: bytes.NewReader(nil)}}
	d := New(rw, testParser(t))
	m, err := d.Prepare("TEST_CLS", "TEST_MSG")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	w := &countingWriter{w: rw}
	if err := d.parser.TransferTo(m, w); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected io.ErrShortWrite, got %v", err)
	}
	// Prefix, header, a 4-byte default payload and the checksum, less one.
	if want := 2 + 4 + 4 + 2 - 1; w.n != want {
		t.Fatalf("expected %d bytes counted, got %d", want, w.n)
	}
	if err := d.Transfer(m); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected io.ErrShortWrite from device, got %v", err)
	}
	if rw.writes != 2 {
		t.Fatalf("expected one write per frame, got %d writes", rw.writes)
	}
}

func TestPrepareAndTransferErrors(t *testing.T) {
	testlog.Start(t)
	rw := &loopback{in: bytes.NewReader(nil)}
	d := New(rw, testParser(t))

	m, err := d.Prepare("test_cls", "test_msg")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	m.Fields["RB"] = []layout.Record{}
	if err := d.Transfer(m); !errors.Is(err, layout.ErrEmptyRepeatedBlock) {
		t.Fatalf("expected ErrEmptyRepeatedBlock, got %v", err)
	}
	if rw.out.Len() != 0 {
		t.Fatalf("nothing should be written on encode failure")
	}
	if _, err := d.Prepare("NAV", "PVT"); !errors.Is(err, frame.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestOpenFromCapture(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	defs := filepath.Join(dir, "defs.yaml")
	capture := filepath.Join(dir, "capture.ubx")
	if err := os.WriteFile(defs, []byte(definitions), 0o600); err != nil {
		t.Fatalf("write definitions: %v", err)
	}
	if err := os.WriteFile(capture, append(append([]byte(nil), testFrame...), testFrame...), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	cfg := config.Default()
	cfg.Definitions = []string{defs}
	cfg.Transport = config.Transport{Kind: config.KindFile, Path: capture}
	d, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	if d.Name() != capture {
		t.Fatalf("expected device name %s, got %s", capture, d.Name())
	}
	for i := 0; i < 2; i++ {
		if _, err := d.Receive(); err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
	}
	if _, err := d.Receive(); !errors.Is(err, frame.ErrShortRead) {
		t.Fatalf("expected ErrShortRead after capture, got %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	testlog.Start(t)
	cfg := config.Default()
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatalf("expected missing definitions error")
	}
	cfg.Definitions = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := Open(context.Background(), cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
