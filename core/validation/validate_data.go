package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fbz-tec/crudx/core/exporters"
	"github.com/fbz-tec/crudx/core/output"
)

var (
	identPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	xmlNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// ValidateIdentifier checks that name can be used unquoted as a SQL table name.
func ValidateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: use letters, digits and underscores, not starting with a digit", name)
	}
	return nil
}

// ValidateXMLName rejects element names encoding/xml would write verbatim
// into a malformed document.
func ValidateXMLName(name string) error {
	if !xmlNamePattern.MatchString(name) || strings.HasPrefix(strings.ToLower(name), "xml") {
		return fmt.Errorf("invalid XML element name %q", name)
	}
	return nil
}

// ParseDelimiter turns a one-character flag value into a CSV delimiter. The
// two-character sequence \t means tab.
func ParseDelimiter(delim string) (rune, error) {
	if delim == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(delim) != 1 {
		delim = strings.TrimSpace(delim)
	}
	if delim == "" {
		return 0, fmt.Errorf("delimiter cannot be empty")
	}

	runes := []rune(delim)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character (use \\t for tab)")
	}
	if runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, fmt.Errorf("delimiter %q is not allowed", delim)
	}
	return runes[0], nil
}

// ValidateExportOptions checks the format-specific settings of opts before
// anything is read from the store.
func ValidateExportOptions(opts exporters.ExportOptions) error {
	if strings.TrimSpace(opts.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if !slices.Contains(exporters.List(), format) {
		return fmt.Errorf("invalid format %q (valid: %s)", opts.Format, strings.Join(exporters.List(), ", "))
	}

	compression := strings.ToLower(strings.TrimSpace(opts.Compression))
	if compression != "" && !slices.Contains(output.Compressions(), compression) {
		return fmt.Errorf("invalid compression %q (valid: %s)", opts.Compression, strings.Join(output.Compressions(), ", "))
	}

	switch format {
	case exporters.FormatSQL:
		if opts.TableName != "" {
			if err := ValidateIdentifier(opts.TableName); err != nil {
				return err
			}
		}
		if opts.RowPerStatement < 1 {
			return fmt.Errorf("--insert-batch must be at least 1")
		}
	case exporters.FormatXML:
		for _, name := range []string{opts.XmlRootElement, opts.XmlRowElement} {
			if name == "" {
				continue
			}
			if err := ValidateXMLName(name); err != nil {
				return err
			}
		}
	case exporters.FormatTemplate:
		hasFull := opts.TemplateFile != ""
		hasStreaming := opts.TemplateRow != "" || opts.TemplateHeader != "" || opts.TemplateFooter != ""
		switch {
		case hasFull && hasStreaming:
			return fmt.Errorf("use either --tpl-file (full mode) or --tpl-row (streaming mode), not both")
		case hasStreaming && opts.TemplateRow == "":
			return fmt.Errorf("template streaming mode requires --tpl-row")
		case !hasFull && !hasStreaming:
			return fmt.Errorf("template format requires either --tpl-file or --tpl-row")
		}
	}
	return nil
}
