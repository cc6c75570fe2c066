package schema

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danmuck/ubxctl/internal/protocol/layout"
	"github.com/danmuck/ubxctl/internal/testutil/testlog"
)

const testTOML = `
[[class]]
id = 0x01
name = "test_cls"

[[class.message]]
id = 0x01
name = "test_msg"
fields = [
  { name = "F1", type = "U1" },
  { name = "F2", type = "X1", flags = [{ name = "SF1", start = 0, stop = 4 }, { name = "SF2", start = 4, stop = 8 }] },
  { name = "RB", fields = [ { name = "RF1", type = "U2" } ] },
]

[[class.message]]
id = 0x02
name = "padded"
fields = [
  { repeat = 2 },
  { name = "CH", type = "C", repeat = 3 },
  { kind = "scalar", name = "R", type = "R8" },
]
`

const testYAML = `
class:
  - id: 0x05
    name: ACK
    message:
      - id: 0x01
        name: ACK
        fields:
          - {name: clsID, type: U1}
          - {name: msgID, type: U1}
      - id: 0x00
        name: NAK
        fields:
          - {name: clsID, type: U1}
          - {name: msgID, type: U1}
`

func TestParseTOML(t *testing.T) {
	testlog.Start(t)
	classes, err := Parse([]byte(testTOML), FormatTOML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(classes) != 1 || classes[0].Name() != "TEST_CLS" || classes[0].ID() != 0x01 {
		t.Fatalf("unexpected classes %v", classes)
	}
	msg, err := classes[0].Get(0x01)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := msg.Encode(layout.Record{
		"F1": 10,
		"F2": layout.Record{"SF1": 1, "SF2": 2},
		"RB": []layout.Record{{"RF1": 100}, {"RF1": 200}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0x0A, 0x21, 0x64, 0x00, 0xC8, 0x00}) {
		t.Fatalf("unexpected payload % x", b)
	}

	padded, err := classes[0].Get(0x02)
	if err != nil {
		t.Fatalf("get padded: %v", err)
	}
	if padded.FixedSize() != 2+3+8 {
		t.Fatalf("unexpected padded size %d", padded.FixedSize())
	}
	if !reflect.DeepEqual(padded.Names(), []string{"CH", "R"}) {
		t.Fatalf("unexpected names %v", padded.Names())
	}
}

func TestParseYAML(t *testing.T) {
	testlog.Start(t)
	classes, err := Parse([]byte(testYAML), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(classes))
	}
	if !reflect.DeepEqual(classes[0].IDs(), []uint8{0x00, 0x01}) {
		t.Fatalf("unexpected ids %v", classes[0].IDs())
	}
	_, rec, err := mustGet(t, classes[0], 0x01).Decode([]byte{0x06, 0x01})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["CLSID"] != uint8(6) || rec["MSGID"] != uint8(1) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func mustGet(t *testing.T, c *layout.Class, id uint8) *layout.Message {
	t.Helper()
	m, err := c.Get(id)
	if err != nil {
		t.Fatalf("get 0x%02x: %v", id, err)
	}
	return m
}

func TestParseValidationErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		doc    string
		field  string
		target error
	}{
		{
			name:   "unsupported type",
			doc:    "class:\n  - id: 1\n    name: C\n    message:\n      - id: 1\n        name: M\n        fields:\n          - {name: A, type: U8}\n",
			field:  "A",
			target: layout.ErrUnsupportedType,
		},
		{
			name:   "flag out of carrier",
			doc:    "class:\n  - id: 1\n    name: C\n    message:\n      - id: 1\n        name: M\n        fields:\n          - {name: B, type: X1, flags: [{name: F, start: 4, stop: 12}]}\n",
			field:  "B",
			target: layout.ErrInvalidRange,
		},
		{
			name:   "nested block",
			doc:    "class:\n  - id: 1\n    name: C\n    message:\n      - id: 1\n        name: M\n        fields:\n          - name: OUT\n            fields:\n              - name: IN\n                fields: [{name: X, type: U1}]\n",
			field:  "OUT.IN",
			target: layout.ErrNestedBlock,
		},
		{
			name:   "repeated bits",
			doc:    "class:\n  - id: 1\n    name: C\n    message:\n      - id: 1\n        name: M\n        fields:\n          - {name: B, type: X1, repeat: 2, flags: [{name: F, start: 0, stop: 1}]}\n",
			field:  "B",
			target: layout.ErrInvalidRepeat,
		},
		{
			name:   "repeated block",
			doc:    "class:\n  - id: 1\n    name: C\n    message:\n      - id: 1\n        name: M\n        fields:\n          - {name: RB, repeat: 3, fields: [{name: X, type: U1}]}\n",
			field:  "RB",
			target: layout.ErrInvalidRepeat,
		},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.doc), FormatYAML)
		var ve ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if ve.Class != "C" || ve.Message != "M" || ve.Field != tc.field {
			t.Fatalf("%s: unexpected location %+v", tc.name, ve)
		}
		if !errors.Is(err, tc.target) {
			t.Fatalf("%s: expected %v in chain, got %v", tc.name, tc.target, err)
		}
	}
}

func TestParseRejectsMissingIDsAndBadDocuments(t *testing.T) {
	testlog.Start(t)
	_, err := Parse([]byte("class:\n  - name: C\n"), FormatYAML)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Reason != "missing id" {
		t.Fatalf("expected missing class id, got %v", err)
	}
	_, err = Parse([]byte("class:\n  - id: 1\n    name: C\n    message:\n      - name: M\n"), FormatYAML)
	if !errors.As(err, &ve) || ve.Message != "M" || ve.Reason != "missing id" {
		t.Fatalf("expected missing message id, got %v", err)
	}
	if _, err := Parse([]byte("class:\n  - id: 300\n    name: C\n"), FormatYAML); !errors.Is(err, layout.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := Parse([]byte("klass = 1\n"), FormatTOML); err == nil {
		t.Fatalf("expected unknown toml key error")
	}
	if _, err := Parse([]byte("klass: 1\n"), FormatYAML); err == nil {
		t.Fatalf("expected unknown yaml key error")
	}
	if _, err := Parse(nil, Format("json")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoadFilesMergesClasses(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "ack.yaml")
	second := filepath.Join(dir, "more.toml")
	if err := os.WriteFile(first, []byte(testYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	more := "[[class]]\nid = 5\nname = \"ACK\"\n[[class.message]]\nid = 0x02\nname = \"EXTRA\"\nfields = [{ name = \"V\", type = \"U4\" }]\n"
	if err := os.WriteFile(second, []byte(more), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	classes, err := LoadFiles(first, second)
	if err != nil {
		t.Fatalf("load files: %v", err)
	}
	if len(classes) != 1 {
		t.Fatalf("expected merged class, got %d", len(classes))
	}
	if !reflect.DeepEqual(classes[0].IDs(), []uint8{0x00, 0x01, 0x02}) {
		t.Fatalf("unexpected ids %v", classes[0].IDs())
	}

	renamed := filepath.Join(dir, "renamed.toml")
	if err := os.WriteFile(renamed, []byte("[[class]]\nid = 5\nname = \"NOT_ACK\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ve ValidationError
	if _, err := LoadFiles(first, renamed); !errors.As(err, &ve) || ve.Class != "NOT_ACK" {
		t.Fatalf("expected class name mismatch, got %v", err)
	}

	dupName := filepath.Join(dir, "dup.toml")
	dup := "[[class]]\nid = 5\nname = \"ack\"\n[[class.message]]\nid = 0x09\nname = \"NAK\"\n"
	if err := os.WriteFile(dupName, []byte(dup), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFiles(first, dupName); !errors.Is(err, layout.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	single, err := LoadFile(second)
	if err != nil || len(single) != 1 {
		t.Fatalf("load file: %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "defs.json")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
