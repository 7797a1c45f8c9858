package importer

// Source is one foreign table whose rows become entities of Kind. Every
// row carries its foreign primary key in the "id" column.
type Source struct {
	Table string
	Kind  string
	// Columns renames foreign columns to kind fields. Columns that match
	// no field after renaming are ignored.
	Columns map[string]string
	Rows    []map[string]string
}

// Link declares a foreign-key column. Each row with a resolvable value
// yields one relation from the row to the referenced row.
type Link struct {
	Table    string
	Column   string
	Relation string
	// Target is the referenced table. Empty means the plural of the column
	// name without its "_id" suffix, so country_id refers to countries.
	Target string
}

// Plan is a complete import.
type Plan struct {
	Sources []Source
	Links   []Link
}

// Result summarizes a committed import.
type Result struct {
	Batch      string
	Entities   map[string]int
	Relations  int
	Unresolved int
	// IDs maps table -> foreign id -> allocated global id.
	IDs map[string]map[string]int64
}
