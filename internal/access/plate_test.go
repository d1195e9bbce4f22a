package access

import "testing"

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"b123xyz", "B123XYZ"},
		{"B 123 XYZ", "B123XYZ"},
		{" b\t123\nxyz ", "B123XYZ"},
		{"B123XYZ", "B123XYZ"},
		{"", ""},
		{"   ", ""},
		{"ab-12-cd", "AB-12-CD"},
	}
	for _, tc := range cases {
		if got := NormalizePlate(tc.in); got != tc.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
