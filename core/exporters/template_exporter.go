package exporters

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// templateExporter renders users through text/template, either as one
// template over the whole set or as header/row/footer templates.
type templateExporter struct{}

func (e *templateExporter) Export(users []model.User, options ExportOptions) (int, error) {
	if options.TemplateStreaming {
		return e.exportStreaming(users, options)
	}
	return e.exportFull(users, options)
}

func (e *templateExporter) exportFull(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing TEMPLATE (full mode) export (compression=%s)", options.Compression)

	tpl, err := loadTemplateIfExists(options.TemplateFile, true, defaultTemplateFuncs())
	if err != nil {
		return 0, err
	}

	writer, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writer.Close()

	data := map[string]any{
		"Users":       users,
		"Columns":     model.Columns,
		"Count":       len(users),
		"GeneratedAt": time.Now().Format(time.RFC3339),
	}
	if err := tpl.Execute(writer, data); err != nil {
		return 0, fmt.Errorf("error executing template: %w", err)
	}
	if err := writer.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("TEMPLATE full export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

func (e *templateExporter) exportStreaming(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing TEMPLATE (streaming mode) export (compression=%s)", options.Compression)

	funcs := defaultTemplateFuncs()
	tplHeader, err := loadTemplateIfExists(options.TemplateHeader, false, funcs)
	if err != nil {
		return 0, err
	}
	tplRow, err := loadTemplateIfExists(options.TemplateRow, true, funcs)
	if err != nil {
		return 0, err
	}
	tplFooter, err := loadTemplateIfExists(options.TemplateFooter, false, funcs)
	if err != nil {
		return 0, err
	}

	writer, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writer.Close()

	generatedAt := time.Now().Format(time.RFC3339)
	if tplHeader != nil {
		header := map[string]any{"Columns": model.Columns, "GeneratedAt": generatedAt}
		if err := tplHeader.Execute(writer, header); err != nil {
			return 0, fmt.Errorf("error executing header template: %w", err)
		}
	}

	for i, u := range users {
		if err := tplRow.Execute(writer, u); err != nil {
			return i, fmt.Errorf("error executing row template: %w", err)
		}
	}

	if tplFooter != nil {
		footer := map[string]any{"Columns": model.Columns, "GeneratedAt": generatedAt, "Count": len(users)}
		if err := tplFooter.Execute(writer, footer); err != nil {
			return len(users), fmt.Errorf("error executing footer template: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("TEMPLATE streaming export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

func defaultTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"title":     cases.Title(language.English).String,
		"trim":      strings.TrimSpace,
		"replace":   strings.ReplaceAll,
		"join":      strings.Join,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"json": func(v any) string {
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Sprintf("ERROR: %v", err)
			}
			return string(b)
		},
		"now":        time.Now,
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
	}
}

func loadTemplateIfExists(path string, required bool, funcs template.FuncMap) (*template.Template, error) {
	if strings.TrimSpace(path) == "" {
		if required {
			return nil, fmt.Errorf("template file path is empty")
		}
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %q: %w", path, err)
	}
	tpl, err := template.New(path).Funcs(funcs).Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", path, err)
	}
	return tpl, nil
}

func init() {
	MustRegister(FormatTemplate, func() Exporter { return &templateExporter{} })
}
