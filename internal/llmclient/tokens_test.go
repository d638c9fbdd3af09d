package llmclient

import "testing"

func TestCountTokens(t *testing.T) {
	if got := CountTokens(""); got != 0 {
		t.Fatalf("empty text must count as 0, got %d", got)
	}
	if got := CountTokens("the quick brown fox jumps over the lazy dog"); got == 0 {
		t.Fatal("non-empty text must count as at least 1 token")
	}
}
