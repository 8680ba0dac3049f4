package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// WordprocessingML subset: paragraphs of runs with optional bold, a
// paragraph style and a left indent.
type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	NS      string   `xml:"xmlns:w,attr"`
	Body    wBody    `xml:"w:body"`
}

type wBody struct {
	Paragraphs []wParagraph `xml:"w:p"`
	Section    wSection     `xml:"w:sectPr"`
}

type wSection struct {
	PageSize wPageSize `xml:"w:pgSz"`
}

type wPageSize struct {
	W int `xml:"w:w,attr"`
	H int `xml:"w:h,attr"`
}

type wParagraph struct {
	Props *wParagraphProps `xml:"w:pPr,omitempty"`
	Runs  []wRun           `xml:"w:r"`
}

type wParagraphProps struct {
	Style  *wVal    `xml:"w:pStyle,omitempty"`
	Indent *wIndent `xml:"w:ind,omitempty"`
}

type wIndent struct {
	Left int `xml:"w:left,attr"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wRun struct {
	Props *wRunProps `xml:"w:rPr,omitempty"`
	Break *struct{}  `xml:"w:br,omitempty"`
	Text  wText      `xml:"w:t"`
}

type wRunProps struct {
	Bold *struct{} `xml:"w:b,omitempty"`
}

type wText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

// block is one paragraph of the flattened document body.
type block struct {
	text   string
	style  string
	bold   bool
	indent int
}

func textRuns(text string, props *wRunProps) []wRun {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	runs := make([]wRun, 0, len(lines))
	for i, line := range lines {
		r := wRun{Props: props, Text: wText{Space: "preserve", Value: line}}
		if i > 0 {
			r.Break = &struct{}{}
		}
		runs = append(runs, r)
	}
	return runs
}

func (b block) paragraph() wParagraph {
	var pp *wParagraphProps
	if b.style != "" || b.indent > 0 {
		pp = &wParagraphProps{}
		if b.style != "" {
			pp.Style = &wVal{Val: b.style}
		}
		if b.indent > 0 {
			pp.Indent = &wIndent{Left: b.indent}
		}
	}
	var rp *wRunProps
	if b.bold {
		rp = &wRunProps{Bold: &struct{}{}}
	}
	return wParagraph{Props: pp, Runs: textRuns(b.text, rp)}
}

// docxBlocks flattens tl into the ordered paragraph list of the document.
func docxBlocks(tl *Timeline) []block {
	blocks := []block{{text: tl.Title, style: "Title"}}
	for _, e := range tl.Entries {
		blocks = append(blocks,
			block{text: e.Title, style: "Heading1"},
			block{text: e.Date.Format(DateLayout), bold: true},
			block{text: "Description:", bold: true},
			block{text: strings.TrimSpace(e.Description)},
		)
		if len(e.Attachments) > 0 {
			blocks = append(blocks, block{text: "Attachments:", bold: true})
			for _, a := range e.Attachments {
				blocks = append(blocks, block{text: fmt.Sprintf("• %s (%s)", a.Filename, a.Type), indent: 720})
			}
		}
	}
	return blocks
}

// RenderDOCX writes tl as a minimal Office Open XML package.
func RenderDOCX(tl *Timeline) ([]byte, error) {
	blocks := docxBlocks(tl)

	doc := wDocument{NS: wordNS}
	doc.Body.Section.PageSize = wPageSize{W: 11906, H: 16838} // A4 in twentieths of a point
	for _, b := range blocks {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs, b.paragraph())
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", append([]byte(xml.Header), body...)},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("render docx: %w", err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("render docx: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="120"/></w:pPr><w:rPr><w:sz w:val="22"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="40"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="60"/></w:pPr><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>
</w:styles>`
