package extract

import (
	"strings"

	"github.com/statementsense/statement-pipeline/internal/statement"
	"github.com/statementsense/statement-pipeline/internal/textnorm"
)

// sectionHeaders is the ordered list of mandated header phrases, matched
// against diacritic-folded, whitespace-compacted lines. Order matters:
// when one line could match several phrases the first entry wins, so the
// more specific installment headers precede the generic ones.
var sectionHeaders = []struct {
	Tag    statement.SectionTag
	Phrase string
}{
	{statement.SectionNoInterest, "COMPRAS Y CARGOS DIFERIDOS A MESES SIN INTERESES"},
	{statement.SectionInterest, "COMPRAS Y CARGOS DIFERIDOS A MESES CON INTERESES"},
	{statement.SectionRegular, "CARGOS, ABONOS Y COMPRAS REGULARES (NO A MESES)"},
	{statement.SectionUnrecognized, "CARGOS NO RECONOCIDOS"},
	{statement.SectionPayment, "TU PAGO REQUERIDO ESTE PERIODO"},
	{statement.SectionSummary, "RESUMEN DE CARGOS Y ABONOS DEL PERIODO"},
	{statement.SectionMovements, "DESGLOSE DE MOVIMIENTOS"},
	{statement.SectionUsageLevel, "NIVEL DE USO DE TU TARJETA"},
	{statement.SectionMessages, "MENSAJES IMPORTANTES"},
	{statement.SectionCostIndex, "INDICADORES DEL COSTO ANUAL"},
}

// Segment splits raw page text into tagged sections by scanning for the
// mandated header phrases line by line. A section runs from its header to
// the next recognized header or the end of the document; headers crossing
// a page boundary keep the page where the header appeared. Repeated
// headers produce repeated sections (multi-card statements repeat the
// transaction tables per card). Text before the first header belongs to
// no section; the metadata pass reads it from the raw pages directly.
func Segment(pages []statement.RawPage) []statement.Section {
	var sections []statement.Section
	var current *statement.Section
	var buf strings.Builder

	flush := func() {
		if current != nil {
			current.Text = buf.String()
			sections = append(sections, *current)
			current = nil
		}
		buf.Reset()
	}

	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			if tag, ok := matchHeader(line); ok {
				flush()
				current = &statement.Section{Tag: tag, Page: page.Index}
				continue
			}
			if current != nil {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
		}
	}
	flush()

	return sections
}

// matchHeader reports the section tag for a line containing one of the
// mandated header phrases. The first phrase in declaration order wins.
func matchHeader(line string) (statement.SectionTag, bool) {
	folded := textnorm.FoldCompact(line)
	if folded == "" {
		return "", false
	}
	for _, h := range sectionHeaders {
		if strings.Contains(folded, h.Phrase) {
			return h.Tag, true
		}
	}
	return "", false
}

// sectionsByTag collects the text of every section carrying one of the
// given tags, in document order.
func sectionsByTag(sections []statement.Section, tags ...statement.SectionTag) []statement.Section {
	var out []statement.Section
	for _, s := range sections {
		for _, tag := range tags {
			if s.Tag == tag {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
