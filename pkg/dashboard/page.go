package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/index.html
var templateFiles embed.FS

var pageFunctions = template.FuncMap{
	"minutes": func(value *float64) string {
		if value == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f min", *value)
	},
	"percent": func(value *float64) string {
		if value == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f%%", *value)
	},
	"ratio": func(value *float64) string {
		if value == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.0f%%", *value*100)
	},
	"share": func(count int, total int) string {
		if total == 0 {
			return "0"
		}
		return fmt.Sprintf("%.1f", 100*float64(count)/float64(total))
	},
}

var indexTemplate = template.Must(template.New("index.html").Funcs(pageFunctions).ParseFS(templateFiles, "templates/index.html"))

func renderIndex(overview Overview) ([]byte, error) {
	var buffer bytes.Buffer
	if err := indexTemplate.Execute(&buffer, overview); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}
