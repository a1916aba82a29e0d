package schema

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourbasic/graph"

	"github.com/sheetstore/sheetstore/pkg/models"
)

// TableOrder returns the model's tables sorted so that every foreign-key
// target comes before the tables referencing it. Cycles between tables are
// legal in the model; the tables involved are reported and kept in
// declaration order, which callers must tolerate (the store accepts forward
// references).
func TableOrder(model *models.DataModel, logger *logrus.Logger) []*models.Table {
	index := make(map[string]int, len(model.Tables))
	for i, table := range model.Tables {
		index[table.Name] = i
	}

	// Edge target -> referrer, so a topological order lists targets first
	g := graph.New(len(model.Tables))
	for i, table := range model.Tables {
		for _, field := range table.Fields {
			if !field.IsForeignKey() || field.ForeignKeyTable.Name == table.Name {
				continue
			}
			g.Add(index[field.ForeignKeyTable.Name], i)
		}
	}

	order, acyclic := graph.TopSort(g)
	if !acyclic {
		for _, component := range graph.StrongComponents(g) {
			if len(component) < 2 {
				continue
			}
			names := make([]string, 0, len(component))
			for _, i := range component {
				names = append(names, model.Tables[i].Name)
			}
			logger.Warningf("Circular foreign keys between tables: %s", strings.Join(names, ", "))
		}
	}

	seen := make(map[int]bool, len(order))
	ordered := make([]*models.Table, 0, len(model.Tables))
	for _, i := range order {
		ordered = append(ordered, model.Tables[i])
		seen[i] = true
	}
	for i, table := range model.Tables {
		if !seen[i] {
			ordered = append(ordered, table)
		}
	}
	return ordered
}
