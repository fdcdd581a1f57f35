package encoding

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := NewEncoder()
	b := e.Encode("héllo wörld")
	d, err := NewDecoder(DecoderOptions{})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	out, err := d.Decode(b, false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "héllo wörld" {
		t.Fatalf("round trip mismatch: %q", out)
	}
}

func TestDecoderRejectsNonUTF8(t *testing.T) {
	_, err := NewDecoder(DecoderOptions{Encoding: "shift-jis"})
	if err == nil {
		t.Fatal("expected RangeError for non-utf-8 encoding")
	}
}

func TestDecoderStripsBOMByDefault(t *testing.T) {
	d, _ := NewDecoder(DecoderOptions{})
	out, err := d.Decode(append([]byte(utf8BOM), []byte("hi")...), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "hi" {
		t.Fatalf("expected BOM stripped, got %q", out)
	}
}

func TestDecoderIgnoreBOMKeepsIt(t *testing.T) {
	d, _ := NewDecoder(DecoderOptions{IgnoreBOM: true})
	out, err := d.Decode(append([]byte(utf8BOM), []byte("hi")...), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != utf8BOM+"hi" {
		t.Fatalf("expected BOM kept, got %q", out)
	}
}

func TestDecoderFatalRejectsInvalidSequence(t *testing.T) {
	d, _ := NewDecoder(DecoderOptions{Fatal: true})
	_, err := d.Decode([]byte{0xff, 0xfe}, false)
	if err == nil {
		t.Fatal("expected error in fatal mode for invalid sequence")
	}
}

func TestDecoderNonFatalReplacesInvalidSequence(t *testing.T) {
	d, _ := NewDecoder(DecoderOptions{})
	out, err := d.Decode([]byte{0xff}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected replacement-character output, got empty")
	}
}

func TestDecoderStreamingCarriesResidualBytes(t *testing.T) {
	d, _ := NewDecoder(DecoderOptions{})
	full := []byte("日本語") // multi-byte UTF-8
	var out string
	for i := 0; i < len(full); i++ {
		chunk := full[i : i+1]
		s, err := d.Decode(chunk, true)
		if err != nil {
			t.Fatalf("decode chunk %d: %v", i, err)
		}
		out += s
	}
	if out != "日本語" {
		t.Fatalf("streaming decode mismatch: %q", out)
	}
}

func TestEncoderStreamCarriesPendingSurrogate(t *testing.T) {
	e := NewEncoder()
	// U+1F600 GRINNING FACE as its UTF-16 surrogate pair, split across
	// two separate chunks the way a streaming encode would receive it.
	const high, low = 0xD83D, 0xDE00
	var out []byte
	out = append(out, e.EncodeStreamUTF16([]uint16{high})...)
	out = append(out, e.EncodeStreamUTF16([]uint16{low})...)
	if string(out) != "😀" {
		t.Fatalf("expected emoji reassembled, got %q", out)
	}
}
