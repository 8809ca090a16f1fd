package app

import (
	"github.com/sokinpui/patchspace/cli"
	"github.com/sokinpui/patchspace/internal/ingest"
	"github.com/sokinpui/patchspace/model"
)

// Config for using patchspace as a library.
type Config struct {
	// Filter by extension (e.g., 'py', 'js').
	Extensions []string
	// Also accept code blocks introduced by a bare file path line.
	Loose bool
}

// Apply loads files as a project, applies the changes found in response
// and returns every file of the resulting project. The input map is not
// modified.
func Apply(files map[string]string, response string, config Config) (map[string]string, model.Summary, error) {
	cliCfg := &cli.Config{
		Extensions: append([]string(nil), config.Extensions...),
		Loose:      config.Loose,
	}
	if err := cliCfg.Validate(); err != nil {
		return nil, model.Summary{}, err
	}

	app := New(cliCfg, nil)
	app.session.Load(ingest.FromFiles(files))

	summary, err := app.ApplyResponse(response)
	if err != nil {
		return nil, model.Summary{}, err
	}

	result := make(map[string]string, app.session.Index.Len())
	for _, e := range app.session.Index.Entries() {
		result[e.Path] = e.Record.Content
	}
	return result, summary, nil
}
