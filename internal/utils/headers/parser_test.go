package headers

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	in := []string{"accept-language: en-GB", "Referer: https://www.mtggoldfish.com/", "X-Empty:"}
	out, err := Parse(in)
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string]string{
		"Accept-Language": "en-GB",
		"Referer":         "https://www.mtggoldfish.com/",
		"X-Empty":         "",
	}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, bad := range []string{"BadHeader", ": value", "Bad Key: v"} {
		if _, err := Parse([]string{bad}); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestParse_LastWins(t *testing.T) {
	out, _ := Parse([]string{"Accept: a", "accept: b"})
	if out["Accept"] != "b" || len(out) != 1 {
		t.Errorf("expected later header to win, got %#v", out)
	}
}
