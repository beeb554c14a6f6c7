package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var indoMonths = []string{
	"Januari",
	"Februari",
	"Maret",
	"April",
	"Mei",
	"Juni",
	"Juli",
	"Agustus",
	"September",
	"Oktober",
	"November",
	"Desember",
}

// FormatTanggal returns the date with Indonesian month names, e.g. "17 Agustus 2026".
func FormatTanggal(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	localTime := t.In(time.Local)
	monthIndex := int(localTime.Month()) - 1
	if monthIndex < 0 || monthIndex >= len(indoMonths) {
		return localTime.Format("02/01/2006")
	}

	return strconv.Itoa(localTime.Day()) + " " + indoMonths[monthIndex] + " " + strconv.Itoa(localTime.Year())
}

// FormatTanggalPtr formats pointer values.
func FormatTanggalPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTanggal(*t)
}

// FormatRupiah renders an amount as "Rp 1.500.000.000" (cents dropped).
func FormatRupiah(amount decimal.Decimal) string {
	whole := amount.Truncate(0)
	digits := whole.Abs().String()

	var b strings.Builder
	if whole.IsNegative() {
		b.WriteString("-")
	}
	b.WriteString("Rp ")
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(".")
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

var indoDigits = []string{"", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan", "sepuluh", "sebelas"}

// Terbilang spells a non-negative whole amount in Indonesian words followed by "rupiah".
func Terbilang(amount decimal.Decimal) string {
	n := amount.Truncate(0).IntPart()
	if n <= 0 {
		return "nol rupiah"
	}
	return strings.TrimSpace(spell(n)) + " rupiah"
}

func spell(n int64) string {
	switch {
	case n == 0:
		return ""
	case n < 12:
		return " " + indoDigits[n]
	case n < 20:
		return spell(n-10) + " belas"
	case n < 100:
		return spell(n/10) + " puluh" + spell(n%10)
	case n < 200:
		return " seratus" + spell(n-100)
	case n < 1000:
		return spell(n/100) + " ratus" + spell(n%100)
	case n < 2000:
		return " seribu" + spell(n-1000)
	case n < 1_000_000:
		return spell(n/1000) + " ribu" + spell(n%1000)
	case n < 1_000_000_000:
		return spell(n/1_000_000) + " juta" + spell(n%1_000_000)
	case n < 1_000_000_000_000:
		return spell(n/1_000_000_000) + " miliar" + spell(n%1_000_000_000)
	}
	return spell(n/1_000_000_000_000) + " triliun" + spell(n%1_000_000_000_000)
}
