package codec

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMarshalDeterministicMapOrder(t *testing.T) {
	first, err := Marshal(map[string]any{"width": 270, "height": 92, "gravity": "n"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(map[string]any{"gravity": "n", "height": 92, "width": 270})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("encodings differ:\n%x\n%x", first, second)
	}
}

func TestRoundtripIntoAny(t *testing.T) {
	data, err := Marshal([]any{"p", "resize", map[string]any{"bitrate": 20}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	items, ok := decoded.([]any)
	if !ok || len(items) != 3 {
		t.Fatalf("decoded = %#v", decoded)
	}
	opts, ok := items[2].(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", items[2])
	}
	if !reflect.DeepEqual(opts, map[string]any{"bitrate": uint64(20)}) {
		t.Fatalf("opts = %#v", opts)
	}
}

func TestValid(t *testing.T) {
	data, err := Marshal([]any{"f", "uid"})
	if err != nil {
		t.Fatal(err)
	}
	if !Valid(data) {
		t.Fatal("expected well-formed data")
	}
	if Valid(data[:len(data)-1]) {
		t.Fatal("expected truncated data to be rejected")
	}
}
