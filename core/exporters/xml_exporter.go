package exporters

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
)

const (
	defaultXmlRootElement = "users"
	defaultXmlRowElement  = "user"
)

type xmlExporter struct{}

func (e *xmlExporter) Export(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing XML export (indent=2 spaces, compression=%s)", options.Compression)

	rootName := options.XmlRootElement
	if rootName == "" {
		rootName = defaultXmlRootElement
	}
	rowName := options.XmlRowElement
	if rowName == "" {
		rowName = defaultXmlRowElement
	}

	writeCloser, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writeCloser.Close()

	if _, err := writeCloser.Write([]byte(xml.Header)); err != nil {
		return 0, fmt.Errorf("error writing XML header: %w", err)
	}

	encoder := xml.NewEncoder(writeCloser)
	encoder.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: rootName}}
	if err := encoder.EncodeToken(root); err != nil {
		return 0, fmt.Errorf("error starting <%s>: %w", rootName, err)
	}

	for i, u := range users {
		row := xml.StartElement{Name: xml.Name{Local: rowName}}
		if err := encoder.EncodeToken(row); err != nil {
			return i, fmt.Errorf("error opening <%s>: %w", rowName, err)
		}
		for k, v := range rowMap(u).AllFromFront() {
			if err := encoder.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: k}}); err != nil {
				return i, fmt.Errorf("error encoding field %s: %w", k, err)
			}
		}
		if err := encoder.EncodeToken(row.End()); err != nil {
			return i, fmt.Errorf("error closing </%s>: %w", rowName, err)
		}
	}

	if err := encoder.EncodeToken(root.End()); err != nil {
		return len(users), fmt.Errorf("error ending </%s>: %w", rootName, err)
	}
	if err := encoder.Flush(); err != nil {
		return len(users), fmt.Errorf("error flushing XML encoder: %w", err)
	}
	if _, err := writeCloser.Write([]byte("\n")); err != nil {
		return len(users), fmt.Errorf("error writing final newline: %w", err)
	}
	if err := writeCloser.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("XML export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

func init() {
	MustRegister(FormatXML, func() Exporter { return &xmlExporter{} })
}
