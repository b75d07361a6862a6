package config

import (
	_ "embed"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/example/labbook/internal/core/schema"
)

//go:embed config.toml.tmpl
var configTemplate string

var fileTemplate = template.Must(template.New("config.toml").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(configTemplate))

// writeFile renders cfg as a commented TOML file.
func writeFile(w io.Writer, cfg *Config) error {
	return fileTemplate.Execute(w, struct {
		*Config
		Schemas string
	}{cfg, strings.Join(schema.IDs(), ", ")})
}
