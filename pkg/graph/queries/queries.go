package queries

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/praetorian-inc/aztopo/pkg/graph"
	"gopkg.in/yaml.v3"
)

//go:embed all:cypher
var cypherFS embed.FS

// LoadedQueries will store all parsed queries, keyed by their unique ID.
var LoadedQueries map[string]Query

func init() {
	var err error
	LoadedQueries, err = loadQueriesFromFS(cypherFS, "cypher")
	if err != nil {
		slog.Error("Failed to load cypher queries", "error", err)
	}
	slog.Debug("Query loading complete", "totalQueries", len(LoadedQueries))
}

func loadQueriesFromFS(targetFS fs.FS, basePath string) (map[string]Query, error) {
	queries := make(map[string]Query)
	err := fs.WalkDir(targetFS, basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".yaml") {
			return nil
		}

		relPath := strings.TrimPrefix(p, basePath+"/")
		dir, fileNameWithExt := path.Split(relPath)
		queryType := strings.Trim(dir, "/")
		queryID := strings.TrimSuffix(relPath, path.Ext(relPath))

		content, err := fs.ReadFile(targetFS, p)
		if err != nil {
			return fmt.Errorf("failed to read query %s: %w", p, err)
		}

		var q Query
		if err := yaml.Unmarshal(content, &q); err != nil {
			return fmt.Errorf("failed to parse query %s: %w", p, err)
		}
		if strings.TrimSpace(q.Cypher) == "" {
			return fmt.Errorf("query %s has no cypher content", p)
		}

		q.ID = queryID
		q.Type = queryType
		q.FileName = fileNameWithExt
		queries[queryID] = q
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", basePath, err)
	}
	return queries, nil
}

// Get returns the query with the given id.
func Get(id string) (Query, error) {
	q, ok := LoadedQueries[id]
	if !ok {
		return Query{}, fmt.Errorf("query with ID '%s' not found", id)
	}
	return q, nil
}

// ByType returns the queries of one type sorted by Order.
func ByType(queryType string) []Query {
	var result []Query
	for _, q := range LoadedQueries {
		if q.Type == queryType {
			result = append(result, q)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ident quotes an allow-listed identifier for interpolation.
func ident(s string) (string, error) {
	if !graph.ValidIdentifier(s) {
		return "", &graph.IdentifierError{Kind: "identifier", Value: s}
	}
	return "`" + s + "`", nil
}

var funcs = template.FuncMap{"ident": ident}

// Render fills the query's identifier placeholders. Values are never
// rendered; they are bound as parameters by the caller.
func (q Query) Render(params any) (string, error) {
	tmpl, err := template.New(q.ID).Funcs(funcs).Option("missingkey=error").Parse(q.Cypher)
	if err != nil {
		return "", fmt.Errorf("failed to parse query %s: %w", q.ID, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render query %s: %w", q.ID, err)
	}
	return buf.String(), nil
}

// Render looks up a query by id and renders it.
func Render(id string, params any) (string, error) {
	q, err := Get(id)
	if err != nil {
		return "", err
	}
	return q.Render(params)
}
