package schools

import (
	"fmt"
	"strings"
)

const entryHTML = `<html><head><title>Rejstřík škol</title></head>
<frameset rows="80,*">
  <frame name="topFrame" src="top.aspx">
  <frame name="mainFrame" src="search.aspx">
</frameset></html>`

const searchHTML = `<html><body>
<form name="Form1" method="post" action="search.aspx?lang=cs" id="Form1">
<input type="hidden" name="__VIEWSTATE" value="vs123">
<input type="hidden" name="__EVENTVALIDATION" value="ev456">
<select name="ctl38">
  <option value=""></option>
  <option value="B00">Mateřská škola</option>
  <option value="B10">Základní&nbsp;škola</option>
</select>
<select name="ctl39">
  <option value="">  </option>
  <option value="CZ010" selected>Hlavní město Praha</option>
  <option value="CZ064">Jihomoravský kraj</option>
</select>
<input type="text" name="txtPocetZaznamu" value="20">
<input type="checkbox" name="chkAktivni" value="on" checked>
<input type="checkbox" name="chkZrusene" value="on">
<input type="submit" name="btnVybrat" value="Vybrat">
<input type="submit" name="btnZrusit" value="Zrušit">
</form></body></html>`

const noResultHTML = `<html><body><form action="search.aspx"></form>
<span class="info">Zadaným podmínkám nevyhovuje žádný záznam</span></body></html>`

func resultHTML(links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="result">`)
	for i, l := range links {
		fmt.Fprintf(&b, `<tr><td>%d</td><td><a href="%s">Právnická osoba %d</a></td></tr>`, i+1, l, i+1)
	}
	b.WriteString(`</table><a href="napoveda.aspx">Nápověda</a></body></html>`)
	return b.String()
}

var facilityHeader = []string{
	"Id. zařízení", "Typ", "Název zařízení", "Obec", "Ulice", "Č.p.", "Č.o.",
	"M.část.", "PSČ", "Cizí vyučovací jazyk", "Kapacita",
}

// detailHTML renders a legal entity page the way the registry lays it out:
// a banner, the entity table (with a nested table), the founder table and
// the facility table.
func detailHTML(header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<html><body>
<table><tr><td>Rejstřík škol a školských zařízení</td></tr></table>
<table>
  <tr><td>Název</td><td>Základní škola Brno</td></tr>
  <tr><td>Adresa</td><td><table><tr><td>Husova 5</td><td>Brno</td></tr></table></td></tr>
</table>
<table><tr><td>Zřizovatel</td><td>Statutární město Brno</td></tr></table>
<table class="zarizeni"><tr>`)
	for _, h := range header {
		fmt.Fprintf(&b, "<th>%s</th>", h)
	}
	b.WriteString("</tr>\n")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, c := range r {
			fmt.Fprintf(&b, "<td>%s</td>", c)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func testSpec(entryURL string) FormSpec {
	return FormSpec{
		EntryURL:    entryURL,
		FrameName:   "mainFrame",
		TypeField:   "ctl38",
		RegionField: "ctl39",
		RowsField:   "txtPocetZaznamu",
		SubmitField: "btnVybrat",
		MaxRows:     9999,
	}
}
