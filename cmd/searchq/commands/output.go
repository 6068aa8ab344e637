package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/searchq/errors"
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// writeFormatted marshals v to w in a structured format
func writeFormatted(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(v)
	case FormatTOML:
		data, err = toml.Marshal(v)
	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: text, json, yaml, toml)", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", format)
	}
	_, err = fmt.Fprint(w, string(data))
	return err
}
