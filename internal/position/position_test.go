package position

import (
	"testing"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name:     "Valid position with filename",
			pos:      Position{Filename: "dir/test.til.yaml", Line: 10, Column: 5},
			isValid:  true,
			expected: "test.til.yaml:10:5",
		},
		{
			name:     "Valid position without filename",
			pos:      Position{Line: 1, Column: 1},
			isValid:  true,
			expected: "1:1",
		},
		{
			name:     "Invalid position - zero line",
			pos:      Position{Line: 0, Column: 1},
			isValid:  false,
			expected: "-",
		},
		{
			name:     "Invalid position - zero column",
			pos:      Position{Line: 1, Column: 0},
			isValid:  false,
			expected: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsValid(); got != tt.isValid {
				t.Errorf("Expected IsValid() = %v, got %v", tt.isValid, got)
			}
			if got := tt.pos.String(); got != tt.expected {
				t.Errorf("Expected String() = %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSpanContains(t *testing.T) {
	span := Span{
		Start: Position{Filename: "a", Line: 2, Column: 3},
		End:   Position{Filename: "a", Line: 4, Column: 1},
	}

	if !span.IsValid() {
		t.Fatal("Expected span to be valid")
	}

	inside := Position{Filename: "a", Line: 3, Column: 9}
	if !span.Contains(inside) {
		t.Errorf("Expected span %s to contain %s", span, inside)
	}

	if span.Contains(span.End) {
		t.Errorf("Expected end position to be exclusive")
	}

	if span.Contains(Position{Filename: "b", Line: 3, Column: 1}) {
		t.Errorf("Expected position in another file to be outside the span")
	}

	if got := span.String(); got != "a:2:3-4:1" {
		t.Errorf("Expected span string a:2:3-4:1, got %s", got)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(Position{Filename: "x.yaml", Line: 7, Column: 2}, "unknown opcode %q", "frob")
	if got := err.Error(); got != `x.yaml:7:2: unknown opcode "frob"` {
		t.Errorf("Unexpected error text: %s", got)
	}
}
