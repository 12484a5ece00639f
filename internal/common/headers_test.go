package common

import (
	"strings"
	"testing"
)

func TestHeaderValueRoundTrip(t *testing.T) {
	testCases := []string{
		"Plain ASCII subject",
		"Вопрос про ядро",
		"mixed: текст and text",
	}
	for _, tc := range testCases {
		encoded := EncodeHeaderValue(tc)
		if got := DecodeHeaderValue(encoded); got != tc {
			t.Errorf("round trip %q: got %q (encoded %q)", tc, got, encoded)
		}
	}
}

func TestEncodeHeaderValueASCIIPassthrough(t *testing.T) {
	if got := EncodeHeaderValue("hello world"); got != "hello world" {
		t.Errorf("ASCII value got encoded: %q", got)
	}
	if got := EncodeHeaderValue("Вопрос"); !strings.HasPrefix(got, "=?utf-8?q?") {
		t.Errorf("non-ASCII value not Q-encoded: %q", got)
	}
}

func TestDecodeHeaderValueCharset(t *testing.T) {
	// KOI8-R encoded word; x/text htmlindex supplies the decoder.
	encoded := "=?koi8-r?Q?=D0=D2=C9=D7=C5=D4?="
	if got := DecodeHeaderValue(encoded); got != "привет" {
		t.Errorf("koi8-r decode: got %q", got)
	}
}

func TestDecodeHeaderValueMalformed(t *testing.T) {
	in := "=?bogus-charset?Q?abc?="
	if got := DecodeHeaderValue(in); got != in {
		t.Errorf("malformed encoded word should pass through, got %q", got)
	}
}

func TestDotStuffing(t *testing.T) {
	testCases := []struct {
		in      string
		stuffed string
	}{
		{".", ".."},
		{".hidden", "..hidden"},
		{"plain", "plain"},
		{"", ""},
		{"a.b", "a.b"},
	}
	for _, tc := range testCases {
		if got := StuffDots(tc.in); got != tc.stuffed {
			t.Errorf("StuffDots(%q) = %q, want %q", tc.in, got, tc.stuffed)
		}
		if got := UnstuffDots(tc.stuffed); got != tc.in {
			t.Errorf("UnstuffDots(%q) = %q, want %q", tc.stuffed, got, tc.in)
		}
	}
}
