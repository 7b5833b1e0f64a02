package alarms

import "github.com/jhuapl-dtnma/refda-go/pkg/ari"

// ToTable renders the index as the alarm-list EDD's 9-column table:
// resource, category, severity, time-created, time-updated, history,
// manager-state, manager-identity, manager-time. The manager-* columns
// are left null here; they belong to the manager-acknowledgment
// extension this implementation does not carry state for independently
// of what original_source's C agent also leaves as a TODO.
func (idx *Index) ToTable() ari.Literal {
	entries := idx.Snapshot()
	rows := make([][]ari.Value, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []ari.Value{
			e.Resource,
			e.Category,
			ari.Uvast(uint64(e.Severity)),
			ari.Timepoint(e.CreatedAt),
			ari.Timepoint(e.UpdatedAt),
			historyTable(e.History),
			ari.Null,
			ari.Null,
			ari.Null,
		})
	}
	return ari.NewTBL(9, rows)
}

func historyTable(h []HistoryEntry) ari.Value {
	rows := make([][]ari.Value, 0, len(h))
	for _, e := range h {
		rows = append(rows, []ari.Value{ari.Timepoint(e.Time), ari.Uvast(uint64(e.Severity))})
	}
	return ari.NewTBL(2, rows)
}
