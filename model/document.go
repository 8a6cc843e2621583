package model

// Document identifies one source document. Ref is the blob object name.
type Document struct {
	Ref    string `json:"document_ref"`
	Tenant string `json:"tenant,omitempty"`
}

// DetectedTable is a table produced by a table provider. The core only reads it.
type DetectedTable struct {
	Source string     `json:"source,omitempty"`
	Page   int        `json:"page,omitempty"`
	Index  int        `json:"index"`
	Header []string   `json:"header_row"`
	Rows   [][]string `json:"rows"`
}

// HeaderRow returns the declared header, falling back to the first row.
func (t DetectedTable) HeaderRow() []string {
	if len(t.Header) > 0 {
		return t.Header
	}
	if len(t.Rows) > 0 {
		return t.Rows[0]
	}
	return nil
}

// DataRows returns the rows below the header.
func (t DetectedTable) DataRows() [][]string {
	if len(t.Header) == 0 && len(t.Rows) > 0 {
		return t.Rows[1:]
	}
	return t.Rows
}
