package tracking

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	cases := []struct {
		name string
		room string
		want string
	}{
		{"John Doe", "101 A", "john101a"},
		{"Amanda", "305", "aman305"},
		{"Bo", "12", "bo12"},
		{"", "101", "101"},
		{"John Doe", " 1 0 1 ", "john101"},
		{"MARIA", "22B", "mari22B"},
	}
	for _, c := range cases {
		if got := Generate(c.name, c.room); got != c.want {
			t.Errorf("Generate(%q, %q) = %q, want %q", c.name, c.room, got, c.want)
		}
	}
}

func TestGenerateMultibyteName(t *testing.T) {
	// Префикс режется по рунам, не по байтам.
	got := Generate("Алексей", "7")
	if got != "алек7" {
		t.Errorf("Generate = %q, want %q", got, "алек7")
	}
}

func TestWithSuffix(t *testing.T) {
	re := regexp.MustCompile(`^john101a-\d{1,2}$`)
	for i := 0; i < 50; i++ {
		got := WithSuffix("john101a")
		if !re.MatchString(got) {
			t.Fatalf("WithSuffix = %q, want match %s", got, re)
		}
		if !strings.HasPrefix(got, "john101a-") {
			t.Fatalf("WithSuffix = %q, candidate prefix lost", got)
		}
	}
}
