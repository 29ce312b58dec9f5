package writer

import (
	"fmt"
	"io"

	"github.com/tidwall/sjson"
)

// JSON line types.
const (
	TypeBanner  = "banner"
	TypeTable   = "table"
	TypeRecord  = "record"
	TypeSummary = "summary"
)

// JSON writes one JSON object per line. Integer fields are numbers, raw fields
// hex strings and game text uses the same escaped form as the text output.
type JSON struct {
	writer io.Writer
}

type jsonValue struct {
	path  string
	value any
}

// Banner writes the image description.
func (j *JSON) Banner(banner Banner) error {
	return j.write(
		jsonValue{"type", TypeBanner},
		jsonValue{"rom", banner.Path},
		jsonValue{"title", banner.Title},
		jsonValue{"size", banner.Size},
	)
}

// Header writes the table header.
func (j *JSON) Header(header Header) error {
	return j.write(
		jsonValue{"type", TypeTable},
		jsonValue{"table", header.Table},
		jsonValue{"base", header.Base},
		jsonValue{"stride", header.Stride},
		jsonValue{"count", header.Count},
	)
}

// Line writes a table element.
func (j *JSON) Line(line Line) error {
	values := []jsonValue{
		{"type", TypeRecord},
		{"table", line.Table},
		{"index", line.Index},
	}
	for _, field := range line.Fields {
		path := "fields." + field.Name
		if field.Kind == IntField {
			values = append(values, jsonValue{path, field.Int})
		} else {
			values = append(values, jsonValue{path, field.Text})
		}
	}
	return j.write(values...)
}

// Footer writes the global error count.
func (j *JSON) Footer(errorCount int) error {
	return j.write(
		jsonValue{"type", TypeSummary},
		jsonValue{"errors", errorCount},
	)
}

func (j *JSON) write(values ...jsonValue) error {
	data := []byte("{}")
	for _, v := range values {
		var err error
		data, err = sjson.SetBytes(data, v.path, v.value)
		if err != nil {
			return fmt.Errorf("setting json field %s: %w", v.path, err)
		}
	}

	data = append(data, '\n')
	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("writing json line: %w", err)
	}
	return nil
}
