package token

import "testing"

func TestTokenizeKeywordsAreCaseInsensitive(t *testing.T) {
	toks, err := New("create SPACE myspace", nil).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != KindKeyword || toks[0].Text != "CREATE" {
		t.Fatalf("expected canonical CREATE keyword, got %+v", toks[0])
	}
	if toks[1].Kind != KindKeyword || toks[1].Text != "SPACE" {
		t.Fatalf("expected canonical SPACE keyword, got %+v", toks[1])
	}
	if toks[2].Kind != KindIdent || toks[2].Text != "myspace" {
		t.Fatalf("expected identifier myspace, got %+v", toks[2])
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := New(`'it\'s here'`, nil).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != KindString || toks[0].Str != "it's here" {
		t.Fatalf("unexpected string token: %+v", toks[0])
	}
}

func TestTokenizeUnterminatedStringFails(t *testing.T) {
	if _, err := New(`'unterminated`, nil).Tokenize(); err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
}

func TestTokenizePlaceholderBindsToParameter(t *testing.T) {
	toks, err := New("insert into m (?)", [][]byte{[]byte("blob-bytes")}).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	var ph *Token
	for i := range toks {
		if toks[i].Kind == KindPlaceholder {
			ph = &toks[i]
		}
	}
	if ph == nil {
		t.Fatal("expected a placeholder token")
	}
	v, ok := ph.AsValue([][]byte{[]byte("blob-bytes")})
	if !ok {
		t.Fatal("expected AsValue to succeed for a placeholder")
	}
	if got, _ := v.Binary(); string(got) != "blob-bytes" {
		t.Fatalf("unexpected blob value: %q", got)
	}
}

func TestTokenizeCommentsAreSkipped(t *testing.T) {
	toks, err := New("select # this is a comment\nfrom", nil).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Text != "SELECT" || toks[1].Text != "FROM" {
		t.Fatalf("expected comment to be skipped, got %+v", toks)
	}
}

func TestTokenizePlaceholderWithoutParameterFails(t *testing.T) {
	if _, err := New("?", nil).Tokenize(); err == nil {
		t.Fatal("expected an error for an unmatched placeholder")
	}
}
