package embarkid

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const embarkidTestPrefix = "embarkid:embarkid_test"

func TestParse_Normalizes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ab#7", "ab#0007"},
		{"ab#0007", "ab#0007"},
		{"player#1234", "player#1234"},
		{"player#9999", "player#9999"},
		{"sixteencharsname#1", "sixteencharsname#0001"},
		{" spaced #42", "spaced#0042"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("%s - Parse(%q) unexpected error: %v", embarkidTestPrefix, tt.input, err)
			}
			if got := id.String(); got != tt.want {
				t.Errorf("%s - Parse(%q).String() = %q, want %q", embarkidTestPrefix, tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_RoundTripAllNumbers(t *testing.T) {
	for n := MinNumber; n <= MaxNumber; n++ {
		for _, input := range []string{fmt.Sprintf("ab#%d", n), fmt.Sprintf("ab#%04d", n)} {
			id, err := Parse(input)
			if err != nil {
				t.Fatalf("%s - Parse(%q) unexpected error: %v", embarkidTestPrefix, input, err)
			}
			want := fmt.Sprintf("ab#%04d", n)
			if id.String() != want {
				t.Fatalf("%s - Parse(%q).String() = %q, want %q", embarkidTestPrefix, input, id.String(), want)
			}
		}
	}
}

func TestParse_NameLengthBounds(t *testing.T) {
	for length := MinNameLength; length <= MaxNameLength; length++ {
		name := strings.Repeat("x", length)
		id, err := Parse(name + "#5")
		if err != nil {
			t.Fatalf("%s - length %d unexpected error: %v", embarkidTestPrefix, length, err)
		}
		if id.Name() != name || id.Number() != 5 {
			t.Errorf("%s - got name=%q number=%d", embarkidTestPrefix, id.Name(), id.Number())
		}
	}
}

func TestParse_NameLengthCountsBytes(t *testing.T) {
	// "é" is two bytes.
	if _, err := Parse("é#1"); err != nil {
		t.Errorf("%s - Parse(\"é#1\") unexpected error: %v", embarkidTestPrefix, err)
	}
	long := strings.Repeat("é", 9) + "#1"
	if _, err := Parse(long); !errors.Is(err, ErrNameLength) {
		t.Errorf("%s - Parse(%q) error = %v, want ErrNameLength", embarkidTestPrefix, long, err)
	}
	if _, err := Parse(strings.Repeat("é", 8) + "#1"); err != nil {
		t.Errorf("%s - 16-byte multibyte name rejected: %v", embarkidTestPrefix, err)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"noseparator", ErrInvalidFormat},
		{"a#b#12", ErrInvalidFormat},
		{"a#12", ErrNameLength},
		{strings.Repeat("n", 17) + "#1", ErrNameLength},
		{"ok#0", ErrInvalidNumber},
		{"ok#10000", ErrInvalidNumber},
		{"ok#abcd", ErrInvalidNumber},
		{"ok#", ErrInvalidNumber},
		{"ok#-1", ErrInvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("%s - Parse(%q) expected error", embarkidTestPrefix, tt.input)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("%s - Parse(%q) error = %v, want %v", embarkidTestPrefix, tt.input, err, tt.want)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) || parseErr.Input != tt.input {
				t.Errorf("%s - Parse(%q) expected *ParseError carrying input", embarkidTestPrefix, tt.input)
			}
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("%s - MustParse expected panic", embarkidTestPrefix)
		}
	}()
	MustParse("broken")
}

func TestID_IsZero(t *testing.T) {
	if !(ID{}).IsZero() {
		t.Errorf("%s - zero ID should report IsZero", embarkidTestPrefix)
	}
	if MustParse("ab#1").IsZero() {
		t.Errorf("%s - parsed ID should not report IsZero", embarkidTestPrefix)
	}
}
