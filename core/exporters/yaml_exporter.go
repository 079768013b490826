package exporters

import (
	"fmt"
	"time"

	"github.com/fbz-tec/crudx/core/encoders"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"gopkg.in/yaml.v3"
)

type yamlExporter struct{}

func (e *yamlExporter) Export(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing YAML export (compression=%s)", options.Compression)

	writeCloser, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writeCloser.Close()

	root := &yaml.Node{Kind: yaml.SequenceNode}
	for i, u := range users {
		node, err := encoders.EncodeYamlRow(rowMap(u))
		if err != nil {
			return i, fmt.Errorf("error encoding YAML row %d: %w", i+1, err)
		}
		root.Content = append(root.Content, node)
	}

	enc := yaml.NewEncoder(writeCloser)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return len(users), fmt.Errorf("error writing YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return len(users), fmt.Errorf("error finishing YAML: %w", err)
	}
	if err := writeCloser.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("YAML export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

func init() {
	MustRegister(FormatYAML, func() Exporter { return &yamlExporter{} })
}
