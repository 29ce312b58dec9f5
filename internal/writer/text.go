package writer

import (
	"fmt"
	"io"
	"strings"
)

// Text writes one line per element in the form "index=<n> name=value ...".
// Banner, table headers and the error count are written as comment lines.
type Text struct {
	writer io.Writer
}

// Banner writes the image description.
func (t *Text) Banner(banner Banner) error {
	if _, err := fmt.Fprintf(t.writer, "# rom=%s title=%s size=%d\n",
		banner.Path, quote(banner.Title), banner.Size); err != nil {
		return fmt.Errorf("writing banner: %w", err)
	}
	return nil
}

// Header writes the table header.
func (t *Text) Header(header Header) error {
	if _, err := fmt.Fprintf(t.writer, "\n# table=%s base=0x%x stride=%d count=%d\n",
		header.Table, header.Base, header.Stride, header.Count); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	return nil
}

// Line writes a table element.
func (t *Text) Line(line Line) error {
	buf := &strings.Builder{}
	fmt.Fprintf(buf, "index=%d", line.Index)

	for _, field := range line.Fields {
		buf.WriteByte(' ')
		buf.WriteString(field.Name)
		buf.WriteByte('=')

		switch field.Kind {
		case StringField:
			buf.WriteString(`"` + field.Text + `"`)
		case ErrorField:
			buf.WriteString(quote(field.Text))
		default:
			buf.WriteString(field.Text)
		}
	}

	if _, err := fmt.Fprintln(t.writer, buf.String()); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// Footer writes the global error count.
func (t *Text) Footer(errorCount int) error {
	if _, err := fmt.Fprintf(t.writer, "\n# errors=%d\n", errorCount); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	return nil
}
