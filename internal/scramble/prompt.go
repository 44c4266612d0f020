package scramble

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to rebuild an outline from scrambled text.
const SystemPrompt = `You rebuild the table of contents of a technical report from OCR text whose layout has been scrambled: columns may be interleaved, numbers separated from their titles, and page numbers moved to other lines.

Return ONLY a JSON array, in reading order, with one object per outline entry:
[{"number": "2.1", "title": "Geological Setting", "page": 14}]

Rules:
- number is the section number exactly as printed ("1", "2.1", "Appendix 3").
- title is the section title without the number, dot leaders or page.
- page is the printed page number as an integer, or null when you cannot tell which page belongs to the entry. Never guess a page.
- Skip headings such as "Contents", list of figures captions and running headers.
- Do not add commentary and do not wrap the array in a code block.`

// BuildUserPrompt wraps the outline block for the model.
func BuildUserPrompt(block []string) string {
	return fmt.Sprintf(`<outline_text>
%s
</outline_text>

Reconstruct every outline entry from the text above as a JSON array.`, strings.Join(block, "\n"))
}

// recordSchema validates a single reconstructed record.
const recordSchema = `{
	"type": "object",
	"properties": {
		"number": {"type": ["string", "integer", "number"]},
		"title": {"type": "string", "minLength": 1},
		"page": {"type": ["integer", "string", "null"]}
	},
	"required": ["number", "title"]
}`
