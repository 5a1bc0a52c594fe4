package lexer_test

import (
	"testing"

	"github.com/pbedn/pbc/internal/lexer"
)

func TestNormalizeStripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("x: int = 1\n")...)
	got := lexer.Normalize(src)
	if string(got) != "x: int = 1\n" {
		t.Errorf("expected BOM to be stripped, got %q", got)
	}
}

func TestNormalizeAppliesNFC(t *testing.T) {
	// "cafe" plus a combining acute accent (NFD) must normalize to the
	// precomposed NFC form so both spellings tokenize identically.
	nfd := "café"
	nfc := "café"
	if got := string(lexer.Normalize([]byte(nfd))); got != nfc {
		t.Errorf("expected NFC normalization %q, got %q", nfc, got)
	}
}

func TestNormalizeLeavesASCIIUntouched(t *testing.T) {
	src := []byte("def main() -> int:\n    return 0\n")
	if got := lexer.Normalize(src); string(got) != string(src) {
		t.Errorf("ASCII source must pass through unchanged, got %q", got)
	}
}
