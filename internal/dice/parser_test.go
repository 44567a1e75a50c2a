package dice

import (
	"errors"
	"testing"
)

func TestParseCanonicalForm(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4d6", "4d6"},
		{"d6", "1d6"},
		{"D20", "1d20"},
		{"4d6dl1", "4d6dl1"},
		{"4d6dl", "4d6dl1"},
		{"2d20kh1", "2d20kh1"},
		{"2d20kh", "2d20kh1"},
		{"5d10kl2", "5d10kl2"},
		{"5d10dh2", "5d10dh2"},
		{"3d6!", "3d6!"},
		{"3d6!5", "3d6!5"},
		{"1d6r1,2", "1d6r1,2"},
		{"1d6ro1", "1d6ro1"},
		{"4d6cs5", "4d6cs5"},
		{"4d6cf2", "4d6cf2"},
		{"4d6dl1cs5", "4d6dl1cs5"},
		{"1d20+5", "1d20 + 5"},
		{"2d6 + 3d8 - 1", "2d6 + 3d8 - 1"},
		{"2*3+4", "2 * 3 + 4"},
		{"2+3*4", "2 + 3 * 4"},
		{"(2+3)*4", "(2 + 3) * 4"},
		{"10/2/5", "10 / 2 / 5"},
		{"10/(2/5)", "10 / (2 / 5)"},
		{"1-(2-3)", "1 - (2 - 3)"},
		{"-2d6", "-2d6"},
		{"-(1d4+2)", "-(1d4 + 2)"},
		{"--3", "--3"},
		{"4D6KH2", "4d6kh2"},
		{"((1d8))", "1d8"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.input, err)
			}
			if got := node.String(); got != tt.want {
				t.Fatalf("expected canonical form %q, got %q", tt.want, got)
			}

			// The canonical form must itself parse to the same rendering.
			again, err := Parse(node.String())
			if err != nil {
				t.Fatalf("reparse %q: %v", node.String(), err)
			}
			if again.String() != node.String() {
				t.Fatalf("canonical form is unstable: %q reparsed as %q", node.String(), again.String())
			}
		})
	}
}

func TestParseDiceTermStructure(t *testing.T) {
	node, err := Parse("4d6dl1!r2cs5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	term, ok := node.(*DiceTerm)
	if !ok {
		t.Fatalf("expected DiceTerm, got %T", node)
	}
	if term.Count != 4 || term.Sides != 6 {
		t.Fatalf("expected 4d6, got %dd%d", term.Count, term.Sides)
	}
	if len(term.Modifiers) != 4 {
		t.Fatalf("expected 4 modifiers, got %d", len(term.Modifiers))
	}
	if m, ok := term.Modifiers[0].(DropLowest); !ok || m.N != 1 {
		t.Fatalf("expected dl1 first, got %v", term.Modifiers[0])
	}
	if m, ok := term.Modifiers[1].(Explode); !ok || m.Threshold != 0 || m.Cap != DefaultExplosionCap {
		t.Fatalf("expected bare explode second, got %v", term.Modifiers[1])
	}
	if m, ok := term.Modifiers[2].(Reroll); !ok || m.Once || len(m.Values) != 1 || m.Values[0] != 2 {
		t.Fatalf("expected r2 third, got %v", term.Modifiers[2])
	}
	if m, ok := term.Modifiers[3].(SuccessCount); !ok || m.Threshold != 5 {
		t.Fatalf("expected cs5 fourth, got %v", term.Modifiers[3])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cause error
	}{
		{name: "empty input", input: ""},
		{name: "missing sides", input: "4d"},
		{name: "missing sides before operator", input: "2d+1"},
		{name: "trailing operator", input: "2+"},
		{name: "unbalanced paren", input: "(2+3"},
		{name: "dangling token", input: "2 3"},
		{name: "zero count", input: "0d6", cause: ErrDiceCountRange},
		{name: "count too large", input: "1001d6", cause: ErrDiceCountRange},
		{name: "zero sides", input: "1d0", cause: ErrDiceSidesRange},
		{name: "sides too large", input: "1d1001", cause: ErrDiceSidesRange},
		{name: "duplicate keep", input: "4d6kh1kh1", cause: ErrConflictingModifiers},
		{name: "two keeps", input: "4d6kh2kl1", cause: ErrConflictingModifiers},
		{name: "two drops", input: "4d6dh1dl1", cause: ErrConflictingModifiers},
		{name: "keep and drop same end", input: "4d6kh2dh1", cause: ErrConflictingModifiers},
		{name: "keep and drop same low end", input: "4d6kl2dl1", cause: ErrConflictingModifiers},
		{name: "success and failure", input: "4d6cs5cf2", cause: ErrConflictingModifiers},
		{name: "reroll covers die", input: "1d2r1,2", cause: ErrRerollCoversDie},
		{name: "explode threshold too high", input: "3d6!7"},
		{name: "explode threshold on d1", input: "1d1!2"},
		{name: "reroll without values", input: "1d6r"},
		{name: "reroll value out of range", input: "1d6r7"},
		{name: "reroll trailing comma", input: "1d6r1,"},
		{name: "success without threshold", input: "4d6cs"},
		{name: "keep zero", input: "4d6kh0"},
		{name: "modifier without dice", input: "5kh1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("expected parse error for %q", tt.input)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %T: %v", err, err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Fatalf("expected cause %v, got %v", tt.cause, err)
			}
		})
	}
}

func TestParseKeepDropOppositeEndsAllowed(t *testing.T) {
	// Keeping from one end and dropping from the other is well-defined.
	if _, err := Parse("4d6kh3dl1"); err != nil {
		t.Fatalf("expected kh3dl1 to parse, got %v", err)
	}
	if _, err := Parse("4d6kl3dh1"); err != nil {
		t.Fatalf("expected kl3dh1 to parse, got %v", err)
	}
}

func TestParseRerollOnceMayCoverAllFaces(t *testing.T) {
	// Once-only rerolls terminate by construction, so a full-coverage
	// set stays legal.
	if _, err := Parse("1d2ro1,2"); err != nil {
		t.Fatalf("expected ro1,2 to parse, got %v", err)
	}
}

func TestParseBoundsAreInclusive(t *testing.T) {
	if _, err := Parse("1000d1000"); err != nil {
		t.Fatalf("expected limits to be inclusive, got %v", err)
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("1d20+?")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected LexError, got %T: %v", err, err)
	}
	if lexErr.Pos != 5 {
		t.Fatalf("expected error at position 5, got %d", lexErr.Pos)
	}

	_, err = Parse("2d6+(3")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if parseErr.Pos != 6 {
		t.Fatalf("expected error at position 6, got %d", parseErr.Pos)
	}
}
