package validate

import (
	"net/url"
	"testing"
)

func TestErrsAdd(t *testing.T) {
	var errs Errs
	errs = errs.Add(Required("a", " "), Required("b", "x"), MinInt("c", 1, 2), MaxLen("d", "abc", 2))
	if len(errs) != 3 {
		t.Fatalf("want 3 errors, got %d: %v", len(errs), errs)
	}
	if got := errs.Error(); got != "a: required; c: must be >= 2; d: must be at most 2 characters" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestQueryInt(t *testing.T) {
	q := url.Values{"n": {"7"}, "bad": {"x"}}
	if v, fe := QueryInt(q, "n", 30); fe != nil || v != 7 {
		t.Fatalf("got %d %v", v, fe)
	}
	if v, fe := QueryInt(q, "missing", 30); fe != nil || v != 30 {
		t.Fatalf("got %d %v", v, fe)
	}
	if _, fe := QueryInt(q, "bad", 30); fe == nil || fe.Field != "bad" {
		t.Fatalf("expected field error, got %v", fe)
	}
}
