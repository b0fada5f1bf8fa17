package sinks

import (
	"fmt"
	"io"
	"os"

	"nightshift/server/logging"
)

// Build opens every sink enabled in cfg. Console output goes to stdout; the
// JSON sink appends to cfg.JSON.FilePath. Unknown sink names are an error.
func Build(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	named := make([]logging.NamedSink, 0, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			named = append(named, logging.NamedSink{Name: name, Sink: NewConsoleSink(stdout, cfg.Console)})
		case logging.SinkJSON:
			file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open json sink %q: %w", cfg.JSON.FilePath, err)
			}
			named = append(named, logging.NamedSink{Name: name, Sink: NewJSON(file, cfg.JSON)})
		case logging.SinkMemory:
			named = append(named, logging.NamedSink{Name: name, Sink: NewMemorySink()})
		default:
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return named, nil
}
