package carset

import (
	"strings"
	"testing"
)

func TestNewPool_DedupKeepsFirst(t *testing.T) {
	// WHAT: Duplicate (make, model) pairs keep the first occurrence only.
	// WHY: The seeded shuffle depends on pool contents and order; dedup must
	// be deterministic.
	p, err := NewPool([]Record{
		{Make: "Honda", Model: "Civic", Year: "2020", Horsepower: "158"},
		{Make: "honda", Model: "CIVIC", Year: "1999", Horsepower: "106"},
		{Make: "Ford", Model: "Mustang", Year: "2020", Horsepower: "450"},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if len(p.All()) != 2 {
		t.Fatalf("all: got %d, want 2", len(p.All()))
	}
	if got := p.Lookup("honda civic").Year; got != "2020" {
		t.Fatalf("dedup kept wrong record: year %q", got)
	}
}

func TestNewPool_SelectableFilter(t *testing.T) {
	// WHAT: Zero-valued required numeric fields disqualify; absent ones do not.
	p, err := NewPool([]Record{
		{Make: "A", Model: "One", Year: "2020", Horsepower: "100"},
		{Make: "B", Model: "Two", Year: "0", Horsepower: "100"},
		{Make: "C", Model: "Three", Horsepower: "100"}, // year absent — still selectable
		{Make: "D", Model: "Four", Year: "2021", Horsepower: "0"},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	sel := p.Selectable()
	if len(sel) != 2 {
		t.Fatalf("selectable: got %d, want 2", len(sel))
	}
	if sel[0].Name() != "A One" || sel[1].Name() != "C Three" {
		t.Fatalf("selectable order: got %q, %q", sel[0].Name(), sel[1].Name())
	}
	if p.Lookup("B Two") == nil {
		t.Fatal("non-selectable records must stay visible in All/Lookup")
	}
}

func TestNewPool_PreservesIngestionOrder(t *testing.T) {
	p, err := NewPool([]Record{
		{Make: "Z", Model: "Last", Year: "2001", Horsepower: "1"},
		{Make: "A", Model: "First", Year: "2002", Horsepower: "2"},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if p.All()[0].Make != "Z" || p.All()[1].Make != "A" {
		t.Fatal("pool must preserve ingestion order, not sort")
	}
}

func TestReadCSV(t *testing.T) {
	// WHAT: Header-driven parsing, NaN cleanup, float-artifact stripping.
	data := `Make,Model,Year,Cylinders,Horsepower,Fuel capacity (gal),Fuel capacity (L),Country
Honda,Civic,2020.0,I4,158,12.4,46.9,Japan
Ford,Mustang,2020,V8,450,16.0,60.6,USA
Lada,Niva,NaN,4,83,11.1,42.0,Russia
`
	p, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	civic := p.Lookup("Honda Civic")
	if civic == nil {
		t.Fatal("civic not loaded")
	}
	if civic.Year != "2020" {
		t.Fatalf("year artifact: got %q, want 2020", civic.Year)
	}
	niva := p.Lookup("Lada Niva")
	if niva.Year != "" {
		t.Fatalf("NaN year: got %q, want empty", niva.Year)
	}
	if !niva.Selectable() {
		t.Fatal("absent year must not disqualify")
	}
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Model,Year\nCivic,2020\n"))
	if err == nil {
		t.Fatal("expected error for missing make column")
	}
}

func TestCompare_SelfIsAllCorrect(t *testing.T) {
	// WHAT: Comparing a record against itself is correct overall and per field.
	r := &Record{
		Make: "Ford", Model: "Mustang", Year: "2020", Cylinders: "V8",
		Horsepower: "450", FuelGal: "16.0", FuelL: "60.6", Country: "USA",
	}
	res := Compare(r, r)
	if !res.Correct || !res.MakeCorrect {
		t.Fatalf("self compare: %+v", res)
	}
	for field, v := range res.Comparisons {
		if v.Status != VerdictCorrect {
			t.Errorf("field %s: got %s, want correct", field, v.Status)
		}
	}
	if res.CorrectName != "Ford Mustang" {
		t.Fatalf("correct name: got %q", res.CorrectName)
	}
}

func TestCompare_HidesNameWhenWrong(t *testing.T) {
	g := &Record{Make: "Honda", Model: "Civic", Year: "2020"}
	c := &Record{Make: "Ford", Model: "Mustang", Year: "2020"}
	res := Compare(g, c)
	if res.Correct {
		t.Fatal("different cars must not be correct")
	}
	if res.CorrectName != "" {
		t.Fatalf("target name leaked: %q", res.CorrectName)
	}
}

func TestCompareCylinders(t *testing.T) {
	tests := []struct {
		guessed, target string
		want            Verdict
	}{
		{"V8", "V6", VerdictHigher},
		{"V6", "V8", VerdictLower},
		{"I4", "4", VerdictCorrect},
		{"V6", "6", VerdictCorrect},
		{"flat", "V6", VerdictUnknown},
		{"", "V6", VerdictUnknown},
	}
	for _, tt := range tests {
		if got := CompareCylinders(tt.guessed, tt.target).Status; got != tt.want {
			t.Errorf("CompareCylinders(%q, %q) = %s, want %s", tt.guessed, tt.target, got, tt.want)
		}
	}
}

func TestCompareNumeric(t *testing.T) {
	tests := []struct {
		guessed, target string
		want            Verdict
	}{
		{"1,234", "1200", VerdictHigher},
		{"1200", "1,234", VerdictLower},
		{"1,234", "1234", VerdictCorrect},
		{"", "300", VerdictUnknown},
		{"300", "", VerdictUnknown},
		{"abc", "300", VerdictUnknown},
	}
	for _, tt := range tests {
		if got := CompareNumeric(tt.guessed, tt.target).Status; got != tt.want {
			t.Errorf("CompareNumeric(%q, %q) = %s, want %s", tt.guessed, tt.target, got, tt.want)
		}
	}
}

func TestCompareString(t *testing.T) {
	if got := CompareString("japan", "Japan").Status; got != VerdictCorrect {
		t.Fatalf("case-insensitive country: got %s", got)
	}
	if got := CompareString("Japan", "USA").Status; got != VerdictIncorrect {
		t.Fatalf("mismatch country: got %s", got)
	}
	if got := CompareString("", "USA").Status; got != VerdictUnknown {
		t.Fatalf("missing country: got %s", got)
	}
}
