package extract_test

import (
	"testing"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
)

func TestParsePriceZZap(t *testing.T) {
	r := extract.ZZap()

	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"3 083р.", 3083, true},
		{"450р.", 450, true},
		{"12 500р.", 12500, true},
		// Below the sanity band.
		{"50р.", 0, false},
		// Above the sanity band.
		{"700000р.", 0, false},
		// Wrong currency token.
		{"450 ₽", 0, false},
		{"нет данных", 0, false},
	}
	for _, c := range cases {
		got, ok := r.ParsePrice(c.text)
		if ok != c.ok || got != c.want {
			t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", c.text, got, ok, c.want, c.ok)
		}
	}
}

func TestParsePriceDecimalComma(t *testing.T) {
	r := extract.STParts()

	got, ok := r.ParsePrice("1 234,56 ₽")
	if !ok || got != 1234.56 {
		t.Fatalf("got %v, %v; want 1234.56, true", got, ok)
	}
}

func TestParsePriceStripPhrases(t *testing.T) {
	r := extract.ZZap()

	// The minimum-order line must not feed the price regex; the real price
	// on the next line wins.
	text := "Заказ от 10 шт. 150р.\n3 083р."
	got, ok := r.ParsePrice(text)
	if !ok || got != 3083 {
		t.Fatalf("got %v, %v; want 3083, true", got, ok)
	}
}

func TestExcludedUsedAndOutOfStock(t *testing.T) {
	r := extract.ZZap()

	excluded := []string{
		"Насос б/у, цена 500р.",
		"Генератор Б/У восстановленный",
		"уценка после витрины",
		"Нет в наличии",
		"Out of Stock",
	}
	for _, text := range excluded {
		if !r.Excluded(text) {
			t.Errorf("Excluded(%q) = false, want true", text)
		}
	}

	if r.Excluded("Насос новый, 5 800р.") {
		t.Error("clean row must not be excluded")
	}
	// "бу" without the space or slash is part of ordinary words.
	if r.Excluded("Трубуется уточнение") {
		t.Error("substring of a regular word must not exclude")
	}
}

func TestMatchesBrandAliases(t *testing.T) {
	r := extract.ZZap()

	cases := []struct {
		rowBrand, filter string
		want             bool
	}{
		{"HYUNDAI/KIA", "hyundai", true},
		{"MOBIS", "hyundai", true},
		{"Mobis", "kia", true},
		{"VAG", "vw", true},
		{"Volkswagen", "vw", true},
		{"PSA", "peugeot", true},
		{"Mercedes-Benz", "mercedes", true},
		{"BOSCH", "hyundai", false},
		{"DENSO", "", true},
		{"", "bosch", false},
	}
	for _, c := range cases {
		if got := r.MatchesBrand(c.rowBrand, c.filter); got != c.want {
			t.Errorf("MatchesBrand(%q, %q) = %v, want %v", c.rowBrand, c.filter, got, c.want)
		}
	}
}

func TestRowBrandFromPattern(t *testing.T) {
	r := extract.Trast()

	row := extract.Row{Text: "Фильтр масляный\nПроизводитель: Knecht/Mahle\n450 ₽"}
	if got := r.RowBrand(row); got != "Knecht/Mahle" {
		t.Fatalf("got %q, want Knecht/Mahle", got)
	}

	// A dedicated brand cell wins over the pattern and keeps only the first line.
	row = extract.Row{Text: "whatever", Brand: "BOSCH\nГермания"}
	if got := r.RowBrand(row); got != "BOSCH" {
		t.Fatalf("got %q, want BOSCH", got)
	}
}
