package registry

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// statusVocabulary holds the known registration states, normalized to
// uppercase ASCII. A candidate cell is only accepted as a status when its
// normalized text matches one of these exactly.
var statusVocabulary = map[string]struct{}{
	"HABIL":      {},
	"INHABIL":    {},
	"NO HABIL":   {},
	"NOHABIL":    {},
	"SUSPENDIDO": {},
	"SUSPENSION": {},
	"FALLECIDO":  {},
	"INACTIVO":   {},
	"BAJA":       {},
	"RETIRADO":   {},
	"CANCELADO":  {},
}

// specialtyHeaderCue marks the specialties table: its header row mentions the
// registration-number column.
const specialtyHeaderCue = "REGISTRO"

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// ExtractDetails parses a detail-page document and returns the registration
// status plus the specialty names in document order. It is a pure function of
// the markup: status may be empty when no table matches the known shapes, and
// specialties may contain duplicates (the store dedupes on insert).
//
// Status detection only considers the two table shapes the portal is known to
// use: a single row with a single cell, or two rows whose second row has a
// single cell. The first vocabulary match wins; the cell text is returned
// verbatim, not normalized.
func ExtractDetails(html string) (LookupResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return LookupResult{}, fmt.Errorf("parse detail markup: %w", err)
	}

	var result LookupResult
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return
		}

		if result.Status == "" {
			result.Status = statusFromTable(rows)
		}

		header := rows.First().Find("td")
		if headerMentionsRegistration(header) {
			rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
				name := cellText(row.Find("td").First())
				if name != "" {
					result.Specialties = append(result.Specialties, name)
				}
			})
		}
	})
	return result, nil
}

func statusFromTable(rows *goquery.Selection) string {
	var candidate string
	switch {
	case rows.Length() == 1 && rows.First().Find("td").Length() == 1:
		candidate = cellText(rows.First())
	case rows.Length() == 2 && rows.Eq(1).Find("td").Length() == 1:
		candidate = cellText(rows.Eq(1))
	default:
		return ""
	}
	if _, known := statusVocabulary[normalizeStatus(candidate)]; known {
		return candidate
	}
	return ""
}

func headerMentionsRegistration(cells *goquery.Selection) bool {
	found := false
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if strings.Contains(strings.ToUpper(cellText(cell)), specialtyHeaderCue) {
			found = true
			return false
		}
		return true
	})
	return found
}

// normalizeStatus uppercases and strips diacritics so that e.g. "Hábil"
// matches the HABIL vocabulary entry.
func normalizeStatus(text string) string {
	stripped, _, err := transform.String(diacriticStripper, text)
	if err != nil {
		stripped = text
	}
	return strings.TrimSpace(strings.ToUpper(stripped))
}

func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
