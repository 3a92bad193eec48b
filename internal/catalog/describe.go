package catalog

// SourceInfo is the public description of a data source: what a report
// author may reference. Physical column names are not exposed.
type SourceInfo struct {
	ID       string      `json:"id"`
	Title    string      `json:"title,omitempty"`
	Fields   []FieldInfo `json:"fields"`
	Joinable []string    `json:"joinable,omitempty"`
}

type FieldInfo struct {
	ID   string    `json:"id"`
	Type FieldType `json:"type"`
}

// Describe lists every data source, sorted by id.
func (c *Catalog) Describe() []SourceInfo {
	out := make([]SourceInfo, 0, len(c.sources))
	for _, id := range c.IDs() {
		ds := c.sources[id]
		info := SourceInfo{
			ID:       ds.ID,
			Title:    ds.Title,
			Fields:   make([]FieldInfo, 0, len(ds.Fields)),
			Joinable: ds.JoinableTables(),
		}
		for _, fid := range ds.FieldIDs() {
			info.Fields = append(info.Fields, FieldInfo{ID: fid, Type: ds.Fields[fid].Type})
		}
		out = append(out, info)
	}
	return out
}
