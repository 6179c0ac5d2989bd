package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordprocessingNS      = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	markupCompatibilityNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

type DOCXParserService interface {
	ExtractText(ctx context.Context, data []byte, maxParagraphs int, maxExpandedBytes int64) (*DOCXContent, error)
}

type DOCXContent struct {
	Text       string
	Paragraphs int
}

type docxParserService struct{}

func NewDOCXParserService() DOCXParserService {
	return &docxParserService{}
}

var errExpansionLimit = errors.New("document body exceeds expansion limit")

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, errExpansionLimit
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// ExtractText streams word/document.xml and collects the text of each w:p.
// Paragraphs nest (text boxes live inside a run of their anchor paragraph), so
// each open w:p gets its own buffer and is emitted when it closes. Content in
// mc:Fallback duplicates the mc:Choice branch and is skipped. The paragraph
// ceiling counts every w:p element, empty or not, and is enforced while
// streaming. The inflated body is capped at maxExpandedBytes regardless of
// what the archive headers declare.
func (d *docxParserService) ExtractText(ctx context.Context, data []byte, maxParagraphs int, maxExpandedBytes int64) (*DOCXContent, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewValidationError(CodeCorruptDocument, "Invalid ZIP file structure.", nil)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, NewValidationError(CodeCorruptDocument, "DOCX is missing word/document.xml.", nil)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, NewValidationError(CodeCorruptDocument, "Failed to open DOCX body.", map[string]any{"reason": err.Error()})
	}
	defer rc.Close()

	dec := xml.NewDecoder(&limitedReader{r: rc, remaining: maxExpandedBytes})

	var (
		out        strings.Builder
		open       []*strings.Builder
		total      int
		nonEmpty   int
		inText     bool
		tokenCount int
	)
	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	for {
		tokenCount++
		if tokenCount%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bodyDecodeError(err, maxExpandedBytes)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == markupCompatibilityNS && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, bodyDecodeError(err, maxExpandedBytes)
				}
				continue
			}
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				total++
				if total > maxParagraphs {
					return nil, NewValidationError(CodeTooComplex,
						fmt.Sprintf("DOCX has too many paragraphs (more than %d).", maxParagraphs),
						map[string]any{"max_paragraphs": maxParagraphs})
				}
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if para := current(); para != nil {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if para := current(); para != nil {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				para := current()
				if para == nil {
					continue
				}
				open = open[:len(open)-1]
				if text := strings.TrimSpace(para.String()); text != "" {
					out.WriteString(text)
					out.WriteByte('\n')
					nonEmpty++
				}
			}
		case xml.CharData:
			if para := current(); inText && para != nil {
				para.Write(t)
			}
		}
	}

	return &DOCXContent{
		Text:       out.String(),
		Paragraphs: nonEmpty,
	}, nil
}

func bodyDecodeError(err error, maxExpandedBytes int64) error {
	if errors.Is(err, errExpansionLimit) {
		return NewValidationError(CodeArchiveUnsafe, "DOCX body expands beyond the allowed size.",
			map[string]any{"max_bytes": maxExpandedBytes})
	}
	return NewValidationError(CodeCorruptDocument, "Malformed DOCX body.", map[string]any{"reason": err.Error()})
}
