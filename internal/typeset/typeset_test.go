package typeset

import "testing"

func TestMeasure(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}

	hello := m.Measure("Hello", DefaultFontSize)
	world := m.Measure(DefaultText, DefaultFontSize)
	if !hello.Valid() || !world.Valid() {
		t.Fatalf("invalid sizes %v %v", hello, world)
	}
	if world.Width <= hello.Width {
		t.Errorf("%q (%v) not wider than %q (%v)", DefaultText, world.Width, "Hello", hello.Width)
	}
	if world.Height != hello.Height {
		t.Errorf("single lines differ in height: %v vs %v", world.Height, hello.Height)
	}

	two := m.Measure("Hello\nHello", DefaultFontSize)
	if two.Width != hello.Width {
		t.Errorf("two lines width = %v, want %v", two.Width, hello.Width)
	}
	if two.Height <= hello.Height*1.5 {
		t.Errorf("two lines height = %v, one line %v", two.Height, hello.Height)
	}

	small := m.Measure(DefaultText, 12)
	if small.Width >= world.Width || small.Height >= world.Height {
		t.Errorf("12pt %v not smaller than 48pt %v", small, world)
	}
}

func TestMeasureEmpty(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Measure("", 20); !got.Valid() {
		t.Errorf("Measure(\"\") = %v, want a usable box", got)
	}
	if got := m.Measure("x", 0); !got.Valid() {
		t.Errorf("zero font size = %v", got)
	}
}

func TestFacesAreCached(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if m.Face(30) != m.Face(30) {
		t.Error("face rebuilt for the same size")
	}
}
