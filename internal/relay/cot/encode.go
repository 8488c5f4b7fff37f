package cot

import (
	"strconv"
	"strings"
)

// Encode renders the canonical textual form of an event: a minimal,
// deterministic, human-diffable summary sized for a constrained
// transport. Attribute order is fixed (uid, type, how, time, start,
// stale), absent fields are omitted entirely, a point sub-element is
// emitted only when latitude or longitude is non-zero, and the detail
// payload is wrapped verbatim with no re-escaping.
func Encode(e *Event) string {
	var b strings.Builder

	b.WriteString("<event")
	appendStringAttr(&b, "uid", e.UID)
	appendStringAttr(&b, "type", e.Type)
	appendStringAttr(&b, "how", e.How)
	appendTimeAttr(&b, "time", e.SendTime)
	appendTimeAttr(&b, "start", e.StartTime)
	appendTimeAttr(&b, "stale", e.StaleTime)
	b.WriteString(">")

	if e.Lat != 0 || e.Lon != 0 {
		b.WriteString(`<point lat="`)
		b.WriteString(formatFloat(e.Lat))
		b.WriteString(`" lon="`)
		b.WriteString(formatFloat(e.Lon))
		appendFloatAttr(&b, "hae", e.Hae)
		appendFloatAttr(&b, "ce", e.Ce)
		appendFloatAttr(&b, "le", e.Le)
		b.WriteString(`"/>`)
	}

	if e.Detail != "" {
		b.WriteString("<detail>")
		b.WriteString(e.Detail)
		b.WriteString("</detail>")
	}

	b.WriteString("</event>")

	return b.String()
}

func appendStringAttr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(value)
	b.WriteString(`"`)
}

func appendTimeAttr(b *strings.Builder, name string, value int64) {
	if value <= 0 {
		return
	}
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(strconv.FormatInt(value, 10))
	b.WriteString(`"`)
}

// appendFloatAttr continues the open attribute sequence inside the point
// element: the previous attribute's closing quote doubles as this one's
// opening delimiter.
func appendFloatAttr(b *strings.Builder, name string, value float64) {
	if value == 0 {
		return
	}
	b.WriteString(`" `)
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(formatFloat(value))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
