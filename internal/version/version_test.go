package version

import (
	"sort"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"10.11.11-1551", "10.11.11-1551-0", true},
		{"10.11.11-1551-0", "10.11.11-1551-0", true},
		{"7.2.1-69057-5", "7.2.1-69057-5", true},
		{"1.0", "1.0.0-0-0", true},
		{"2", "2.0.0-0-0", true},
		{" v3.4.5 ", "3.4.5-0-0", true},
		{"1_2_3", "1.2.3-0-0", true},
		{"", "invalid", false},
		{"abc", "invalid", false},
		{"1.2.beta", "invalid", false},
		{"1..2", "invalid", false},
		{"1.2.3-4-5-6", "invalid", false},
		{"-1.2", "invalid", false},
		{"1.2.", "invalid", false},
		{"9223372036854775807", "9223372036854775807.0.0-0-0", true},
		{"9223372036854775808.1", "invalid", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			k := Parse(tc.in)
			if k.IsValid() != tc.valid {
				t.Fatalf("Parse(%q).IsValid() = %v, want %v", tc.in, k.IsValid(), tc.valid)
			}
			if got := k.String(); got != tc.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestImplicitSmallFixIsEqual(t *testing.T) {
	a := Parse("10.11.11-1551")
	b := Parse("10.11.11-1551-0")
	if Compare(a, b) != 0 {
		t.Fatalf("expected %s and %s to compare equal", a, b)
	}
	if !a.Equal(b) {
		t.Fatal("expected Equal to hold")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"10.11.12-1552", "10.11.11-1551", 1},
		{"10.11.11-1551", "10.11.12-1552", -1},
		{"7.2.1-69057-5", "7.2.1-69057-4", 1},
		{"7.2.1-69057", "7.2.1-69057-1", -1},
		{"7.10.0", "7.9.9", 1},
		{"1.2.3", "1.2.3.0", 0},
		{"garbage", "0.0.0", -1},
		{"0.0.0", "garbage", 1},
		{"garbage", "other-garbage", 0},
	}
	for _, tc := range tests {
		t.Run(tc.a+"_vs_"+tc.b, func(t *testing.T) {
			if got := Compare(Parse(tc.a), Parse(tc.b)); got != tc.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCompareProperties(t *testing.T) {
	samples := []string{
		"10.11.11-1551", "10.11.11-1551-0", "10.11.12-1552", "1.0", "1.0.0-0-1",
		"7.2.1-69057-5", "bad", "", "3", "18446744073709551615.1",
	}
	for _, a := range samples {
		ka := Parse(a)
		if Compare(ka, ka) != 0 {
			t.Errorf("Compare(%q, %q) is not reflexive", a, a)
		}
		for _, b := range samples {
			kb := Parse(b)
			if Compare(ka, kb) != -Compare(kb, ka) {
				t.Errorf("Compare is not antisymmetric for %q, %q", a, b)
			}
			for _, c := range samples {
				kc := Parse(c)
				if Compare(ka, kb) <= 0 && Compare(kb, kc) <= 0 && Compare(ka, kc) > 0 {
					t.Errorf("Compare is not transitive for %q <= %q <= %q", a, b, c)
				}
			}
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"10.11.11-1551", "7.2.1-69057-5", "1", "v2.0", "4_5_6"} {
		once := Normalize(s)
		if once == "" {
			t.Fatalf("Normalize(%q) unexpectedly empty", s)
		}
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", s, once, twice)
		}
	}
	if got := Normalize("not-a-version"); got != "" {
		t.Errorf("Normalize(invalid) = %q, want empty", got)
	}
}

func TestCompareLargeFields(t *testing.T) {
	hi, lo := Parse("1.0.0-9223372036854775807"), Parse("1.0.0-9223372036854775806")
	if Compare(hi, lo) != 1 || Compare(lo, hi) != -1 || Compare(hi, hi) != 0 {
		t.Errorf("Compare over int64 boundary fields is not ordered")
	}
}

func TestCompareOrdersNewestFirst(t *testing.T) {
	keys := []Key{Parse("1.0"), Parse("bad"), Parse("10.11.12-1552"), Parse("10.11.11-1551")}
	sort.SliceStable(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) > 0 })
	want := []string{"10.11.12-1552-0", "10.11.11-1551-0", "1.0.0-0-0", "invalid"}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, k, want[i])
		}
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustParse to panic on invalid input")
		}
	}()
	MustParse("x.y")
}

func FuzzParse(f *testing.F) {
	f.Add("10.11.11-1551")
	f.Add("7.2.1-69057-5")
	f.Add("")
	f.Add("1..2")
	f.Add("v1_2")

	f.Fuzz(func(t *testing.T, s string) {
		k := Parse(s)
		if Compare(k, k) != 0 {
			t.Fatalf("Compare not reflexive for %q", s)
		}
		if !k.IsValid() {
			return
		}
		n := Normalize(s)
		if Normalize(n) != n {
			t.Fatalf("Normalize not idempotent for %q", s)
		}
		if Compare(Parse(n), k) != 0 {
			t.Fatalf("normalized form of %q does not compare equal", s)
		}
	})
}
