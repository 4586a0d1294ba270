package exports

import "testing"

func TestNeedsQuotingAlphanumericCopiedVerbatim(t *testing.T) {
	if needsQuoting("org.x.App") {
		t.Fatalf("expected org.x.App to not need quoting")
	}
	if !needsQuoting("has space") {
		t.Fatalf("expected 'has space' to need quoting")
	}
}

func TestShellSplitAndQuoteRoundtrip(t *testing.T) {
	cases := []string{"gedit", "--no-wait", "file name.txt", "it's mine"}
	for _, c := range cases {
		quoted := maybeQuote(c)
		tokens, err := shellSplit(quoted)
		if err != nil {
			t.Fatalf("shellSplit(%q) error: %v", quoted, err)
		}
		if len(tokens) != 1 || tokens[0] != c {
			t.Fatalf("roundtrip mismatch: got %v, want [%q]", tokens, c)
		}
	}
}

func TestShellSplitMultipleTokens(t *testing.T) {
	tokens, err := shellSplit(`gedit %U`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "gedit" || tokens[1] != "%U" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestShellSplitUnterminatedQuoteFails(t *testing.T) {
	_, err := shellSplit(`gedit 'unterminated`)
	if err == nil {
		t.Fatalf("expected error for unterminated quote")
	}
}
