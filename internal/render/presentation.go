package render

import (
	"encoding/xml"
	"strings"
)

// Row is one label/value line of a presentation section.
type Row struct {
	Label string `xml:"label,attr"`
	Value string `xml:",chardata"`
}

// Section groups rows under a heading.
type Section struct {
	Heading string `xml:"heading,attr"`
	Rows    []Row  `xml:"row"`
}

// Presentation is the layout the rasterizer draws.
type Presentation struct {
	XMLName  xml.Name  `xml:"document"`
	Title    string    `xml:"title,attr"`
	Subtitle string    `xml:"subtitle,attr"`
	Sections []Section `xml:"section"`
	QRCode   string    `xml:"qrcode"`
	Footer   string    `xml:"footer"`
}

// ParsePresentation decodes presentation XML emitted by a template.
func ParsePresentation(data []byte) (*Presentation, error) {
	var p Presentation
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, &RenderError{Stage: stageTransform, Reason: "template produced malformed presentation", Err: err}
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, &RenderError{Stage: stageTransform, Reason: "presentation has no title"}
	}
	if len(p.Sections) == 0 {
		return nil, &RenderError{Stage: stageTransform, Reason: "presentation has no sections"}
	}
	for i := range p.Sections {
		for j := range p.Sections[i].Rows {
			p.Sections[i].Rows[j].Value = strings.TrimSpace(p.Sections[i].Rows[j].Value)
		}
	}
	p.QRCode = strings.TrimSpace(p.QRCode)
	p.Footer = strings.TrimSpace(p.Footer)
	return &p, nil
}
