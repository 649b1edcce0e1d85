package simhash

import (
	"reflect"
	"testing"
)

func TestFingerprint_IdenticalTexts(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	if Fingerprint(text) != Fingerprint(text) {
		t.Error("identical texts produced different fingerprints")
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox jumps over the lazy dog")
	fp2 := Fingerprint("completely unrelated content about quantum physics and mathematics")

	if dist := Distance(fp1, fp2); dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestFingerprint_CaseInsensitiveWords(t *testing.T) {
	if Fingerprint("Hello World") != Fingerprint("hello world") {
		t.Error("word features should ignore case")
	}
}

func TestFingerprint_EmptyInput(t *testing.T) {
	if fp := Fingerprint("   \t\n  "); fp != 0 {
		t.Errorf("whitespace-only input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestFingerprint_CJKPagesDiffer(t *testing.T) {
	page1 := "这款车的油耗表现非常不错 空间也足够一家人使用"
	page2 := "售后服务网点太少了 保养价格比同级别车型贵很多"

	if Similar(Fingerprint(page1), Fingerprint(page2), 3) {
		t.Error("unrelated CJK comments should not be similar")
	}
	if !Similar(Fingerprint(page1), Fingerprint(page1), 0) {
		t.Error("same CJK text should be identical")
	}
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"words", "Foo bar", []string{"foo", "bar"}},
		{"short ideographs", "油耗", []string{"油耗"}},
		{"shingled ideographs", "油耗很低", []string{"油耗很", "耗很低"}},
		{"mixed", "SUV 空间大", []string{"suv", "空间大"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Features(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Features(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox")
	fp3 := Fingerprint("a completely different text about nothing related")
	dist := Distance(fp1, fp3)

	if Similar(fp1, fp3, dist-1) {
		t.Errorf("should not be similar at threshold %d (distance is %d)", dist-1, dist)
	}
	if !Similar(fp1, fp3, dist) {
		t.Errorf("should be similar at threshold equal to distance (%d)", dist)
	}
}
