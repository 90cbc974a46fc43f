// Package parser turns free-form calendar event text into structured
// booking fields. All sync paths share this one implementation.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Description holds every field extractable from an event description.
// Pointer fields distinguish "label present" from "label absent": absent
// fields must not overwrite stored values on merge writes.
type Description struct {
	KinaGunu          string
	TelNo             string
	EsiTelNo          string
	Instagram         string
	Fotografci        string
	Modaevi           string
	AnlasilanUcret    *int
	Kapora            *int
	Kalan             *int
	AnlasildigiTarih  string
	BilgiGonderildi   *bool
	UcretKaydedildi   *bool
	MalzemeGonderildi *bool
	PaylasimIzni      *bool
	YorumIstendi      *bool
	YorumAlindi       *bool
	GelinNotu         string
	DekontGorseli     string
}

var (
	nonDigitRe    = regexp.MustCompile(`\D`)
	agreedDateRe  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4}) (\d{2}):(\d{2})$`)
	multiSpaceRe  = regexp.MustCompile(` {2,}`)
	checkmarkAlts = []string{"✔️", "✓"}
)

// ParseDescription never fails: unmatched or empty input yields zero
// values for every field.
func ParseDescription(text string) Description {
	var d Description

	kinaFound := false
	for _, line := range normalizeLines(text) {
		lower := strings.ToLower(line)

		// Kına Günü is free text on its own line. Lines that carry a
		// colon mention the word inside some other label's value.
		if !kinaFound && strings.Contains(line, "Kına") && !strings.Contains(line, ":") {
			d.KinaGunu = line
			kinaFound = true
			continue
		}

		switch {
		case hasLabel(lower, "Eşi Tel No:"):
			d.EsiTelNo = valueAfterColon(line)
		case hasLabel(lower, "Tel No:"):
			d.TelNo = valueAfterColon(line)
		case hasLabel(lower, "IG:"):
			d.Instagram = valueAfterColon(line)
		case hasLabel(lower, "Fotoğrafçı:"):
			d.Fotografci = valueAfterColon(line)
		case hasLabel(lower, "Modaevi:"):
			d.Modaevi = valueAfterColon(line)
		case hasLabel(lower, "Anlaşılan Ücret:"):
			d.AnlasilanUcret = intPtr(parseCurrency(valueAfterColon(line)))
		case hasLabel(lower, "Kapora:"):
			d.Kapora = intPtr(parseCurrency(valueAfterColon(line)))
		case hasLabel(lower, "Kalan:"):
			d.Kalan = intPtr(parseCurrency(valueAfterColon(line)))
		case hasLabel(lower, "Anlaştığı Tarih:"):
			d.AnlasildigiTarih = parseAgreedDate(valueAfterColon(line))
		case hasLabel(lower, "Bilgi Gönderildi"):
			d.BilgiGonderildi = boolPtr(hasCheckmark(line))
		case hasLabel(lower, "Ücret Kaydedildi"):
			d.UcretKaydedildi = boolPtr(hasCheckmark(line))
		case hasLabel(lower, "Malzeme Gönderildi"):
			d.MalzemeGonderildi = boolPtr(hasCheckmark(line))
		case hasLabel(lower, "Paylaşım İzni"):
			d.PaylasimIzni = boolPtr(hasCheckmark(line))
		case hasLabel(lower, "Yorum İstendi"):
			d.YorumIstendi = boolPtr(hasCheckmark(line))
		case hasLabel(lower, "Yorum Alındı"):
			d.YorumAlindi = boolPtr(hasCheckmark(line))
		case hasLabel(lower, "Gelin Notu:"):
			d.GelinNotu = valueAfterColon(line)
		case hasLabel(lower, "Dekont Görseli:"):
			d.DekontGorseli = valueAfterColon(line)
		}
	}

	return d
}

// normalizeLines prepares the raw description for line-scoped matching.
// Line boundaries are kept exactly as authored: labels and values never
// span lines.
func normalizeLines(text string) []string {
	text = strings.ReplaceAll(text, " ", " ")
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpaceRe.ReplaceAllString(line, " "))
	}
	return lines
}

func hasLabel(lowerLine, label string) bool {
	return strings.HasPrefix(lowerLine, strings.ToLower(label))
}

// valueAfterColon splits on the first colon only, so colons inside the
// value (times, URLs, note text) survive intact.
func valueAfterColon(line string) string {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// parseCurrency strips everything but digits. An uppercase "X" anywhere
// in the raw value is the author's "fee not set" placeholder and maps to
// the FeeUnknown sentinel; an otherwise empty value is an explicit zero.
// Values beyond the int range are unparseable and read as zero too.
func parseCurrency(raw string) int {
	if strings.Contains(raw, "X") {
		return -1
	}
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// parseAgreedDate converts a strict "DD.MM.YYYY HH:MM" value into a naive
// local "YYYY-MM-DDTHH:MM:00" timestamp. Anything else yields empty.
func parseAgreedDate(raw string) string {
	m := agreedDateRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s-%sT%s:%s:00", m[3], m[2], m[1], m[4], m[5])
}

func hasCheckmark(line string) bool {
	for _, mark := range checkmarkAlts {
		if strings.Contains(line, mark) {
			return true
		}
	}
	return false
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }
