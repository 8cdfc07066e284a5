package arm

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		angles   []int
		expected string
	}{
		{[]int{90, 90, 90, 90, 90}, "S1 90,S2 90,S3 90,S4 90,S5 90\n"},
		{[]int{0, 180, 45, 135, 7}, "S1 0,S2 180,S3 45,S4 135,S5 7\n"},
		{[]int{12}, "S1 12\n"},
		{[]int{1, 2}, "S1 1,S2 2\n"},
	}

	for _, tt := range tests {
		if got := Encode(tt.angles); got != tt.expected {
			t.Errorf("Encode(%v) = %q, want %q", tt.angles, got, tt.expected)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		line     string
		expected map[int]int
	}{
		{"S1 90,S2 90,S3 90,S4 90,S5 90\n", map[int]int{1: 90, 2: 90, 3: 90, 4: 90, 5: 90}},
		{"S1 90, S2 45", map[int]int{1: 90, 2: 45}},
		{"S1 10, S2 20/n", map[int]int{1: 10, 2: 20}},
		{"S3 200,S4 -5", map[int]int{3: 180, 4: 0}}, // clamped like the servo driver
	}

	for _, tt := range tests {
		got, err := Decode(tt.line)
		if err != nil {
			t.Errorf("Decode(%q) error: %v", tt.line, err)
			continue
		}
		if len(got) != len(tt.expected) {
			t.Errorf("Decode(%q) = %v, want %v", tt.line, got, tt.expected)
			continue
		}
		for j, a := range tt.expected {
			if got[j] != a {
				t.Errorf("Decode(%q)[%d] = %d, want %d", tt.line, j, got[j], a)
			}
		}
	}
}

func TestDecode_SkipsMalformedParts(t *testing.T) {
	got, err := Decode("S1 30,S2 abc,hello,S3 60")
	if !errors.Is(err, ErrMalformedCommand) {
		t.Errorf("error = %v, want ErrMalformedCommand", err)
	}
	if got[1] != 30 || got[3] != 60 {
		t.Errorf("valid parts not decoded: %v", got)
	}
	if _, ok := got[2]; ok {
		t.Errorf("malformed part decoded: %v", got)
	}
}

func TestDecode_EncodeRoundTrip(t *testing.T) {
	angles := []int{0, 33, 90, 179, 180}

	got, err := Decode(Encode(angles))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range angles {
		if got[i+1] != a {
			t.Errorf("joint %d = %d, want %d", i+1, got[i+1], a)
		}
	}
}
