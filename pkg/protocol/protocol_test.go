package protocol

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestReadRequestParsesSingleFrame(t *testing.T) {
	src := "select * from bench.bench"
	frame := "S" + strconv.Itoa(len(src)) + "\n" + src
	r := bufio.NewReader(strings.NewReader(frame))

	req, err := ReadRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.Source != src {
		t.Fatalf("unexpected source: %q", req.Source)
	}
}

func TestReadRequestRejectsWrongMarker(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("X5\nhello"))
	if _, err := ReadRequest(r); err == nil {
		t.Fatal("expected an error for a non-'S' marker")
	}
}

func TestReadPipelineParsesBatch(t *testing.T) {
	stmts := []string{"create space s1", "create model s1.users (id: string)"}
	var b bytes.Buffer
	b.WriteString("P" + strconv.Itoa(len(stmts)) + "\n")
	for _, s := range stmts {
		b.WriteString(strconv.Itoa(len(s)) + "\n" + s)
	}
	r := bufio.NewReader(&b)

	reqs, err := ReadPipeline(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != len(stmts) {
		t.Fatalf("expected %d requests, got %d", len(stmts), len(reqs))
	}
	for i, s := range stmts {
		if reqs[i].Source != s {
			t.Fatalf("request %d: expected %q, got %q", i, s, reqs[i].Source)
		}
	}
}

func TestReadPipelineRejectsWrongMarker(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("S1\na"))
	if _, err := ReadPipeline(r); err == nil {
		t.Fatal("expected an error for a non-'P' marker")
	}
}

func TestWriteResponseWritesEachKind(t *testing.T) {
	cases := []Response{
		Empty(),
		ErrorResponse("syntax", "bad statement"),
		ScalarResponse(value.String("v")),
		RowResponse([]value.Value{value.Uint(1)}),
		MultiRowResponse([][]value.Value{{value.Uint(1)}}),
	}
	for _, resp := range cases {
		var buf bytes.Buffer
		if err := WriteResponse(&buf, resp); err != nil {
			t.Fatal(err)
		}
		if buf.Len() == 0 {
			t.Fatalf("expected non-empty output for %+v", resp)
		}
	}
}
