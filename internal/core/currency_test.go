package core

import "testing"

func TestDollarStringToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"$100.23", 10023, true},
		{"$0.01", 1, true},
		{"$0.00", 0, true},
		{"$1,200.00", 120000, true},
		{"100.23", 0, false}, // missing dollar sign
		{"$100", 0, false},   // missing cents
		{"$100.2", 0, false},
		{"$100.234", 0, false},
		{"$.23", 0, false},
		{"$abc.de", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := DollarStringToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestCentsToDollarString(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{10023, "100.23"},
		{1, "0.01"},
		{99, "0.99"},
		{100, "1.00"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := CentsToDollarString(tc.in); got != tc.out {
			t.Errorf("CentsToDollarString(%d) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
