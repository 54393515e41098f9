package outputproviders

import (
	"fmt"
	"io"
	"strings"

	"github.com/praetorian-inc/aztopo/internal/logs"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
)

// MarkdownTable is a titled table of string cells.
type MarkdownTable struct {
	TableHeading string
	Headers      []string
	Rows         [][]string
}

type MarkdownFileProvider struct {
	OutputPath string
}

func (fp *MarkdownFileProvider) Write(snapshot adapters.Snapshot) error {
	file, err := createFile(fp.OutputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, table := range SnapshotTables(snapshot) {
		if err := WriteTable(file, table); err != nil {
			return err
		}
	}

	logs.ConsoleLogger().Info("Markdown table written", "path", fp.OutputPath)
	return nil
}

// SnapshotTables renders the nodes and relationships of a snapshot as two
// tables.
func SnapshotTables(snapshot adapters.Snapshot) []MarkdownTable {
	nodes := MarkdownTable{
		TableHeading: "Nodes",
		Headers:      []string{"Label", "Name", "Id"},
	}
	for _, n := range snapshot.Nodes {
		nodes.Rows = append(nodes.Rows, []string{n.Label, n.Name, n.ID})
	}

	rels := MarkdownTable{
		TableHeading: "Relationships",
		Headers:      []string{"Type", "Source", "Target"},
	}
	for _, r := range snapshot.Relationships {
		rels.Rows = append(rels.Rows, []string{
			r.Type,
			r.SourceLabel + " " + r.SourceID,
			r.TargetLabel + " " + r.TargetID,
		})
	}
	return []MarkdownTable{nodes, rels}
}

// WriteTable writes table with columns padded to their widest cell.
func WriteTable(w io.Writer, table MarkdownTable) error {
	var b strings.Builder

	if table.TableHeading != "" {
		b.WriteString("# " + table.TableHeading + "\n\n")
	}

	colWidths := make([]int, len(table.Headers))
	for i, header := range table.Headers {
		colWidths[i] = len(header)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	headerRow := "|"
	dividerRow := "|"
	for i, header := range table.Headers {
		headerRow += fmt.Sprintf(" %-*s |", colWidths[i], header)
		dividerRow += fmt.Sprintf(" %s |", strings.Repeat("-", colWidths[i]))
	}
	b.WriteString(headerRow + "\n")
	b.WriteString(dividerRow + "\n")

	for _, row := range table.Rows {
		rowText := "|"
		for i := range table.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			rowText += fmt.Sprintf(" %-*s |", colWidths[i], cell)
		}
		b.WriteString(rowText + "\n")
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
