package main

import "testing"

func TestParseSizeValid(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1024", 1048576}, // bare number is a KiB count (spec.md §6)
		{"2048", 2097152}, // matches --buffer-size's default
		{"4096", 4194304}, // spec.md §8 scenario S2's 4096 KiB threshold
		{"1", 1024},       // 1 KiB
		{"1Ki", 1024},     // explicit Ki suffix still means KiB
		{"1KiB", 1024},    // explicit KiB suffix still means KiB
		{"1KB", 1024},     // explicit KB suffix still means KiB
		{"1MiB", 1048576}, // explicit non-KiB unit is an absolute byte count
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "abc", "1.5.5"} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseSize(input); err == nil {
				t.Errorf("parseSize(%q) should return error", input)
			}
		})
	}
}

func TestCompilePatternEmpty(t *testing.T) {
	re, err := compilePattern("")
	if err != nil {
		t.Fatalf("compilePattern(\"\") error: %v", err)
	}
	if re != nil {
		t.Errorf("compilePattern(\"\") = %v, want nil", re)
	}
}

func TestCompilePatternValid(t *testing.T) {
	re, err := compilePattern(`.*\.txt`)
	if err != nil {
		t.Fatalf("compilePattern error: %v", err)
	}
	if !re.MatchString("foo.txt") {
		t.Error("expected pattern to match foo.txt")
	}
}

func TestCompilePatternInvalid(t *testing.T) {
	if _, err := compilePattern("[invalid"); err == nil {
		t.Error("compilePattern(\"[invalid\") should return error")
	}
}
