package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// designPrefix marks documents that hold view definitions
const designPrefix = "_design/"

// Document is the decoded form of a stored JSON document handed to map functions
type Document map[string]any

// MapFunc inspects a document and optionally emits a key for it.
// Emitted values are always the whole document. A null key is emitted as "".
type MapFunc func(doc Document) (key string, emit bool)

// Views maps view names to their map functions within one design document
type Views map[string]MapFunc

// DesignDoc is the persisted description of a design document
type DesignDoc struct {
	Views []string `json:"views"`
}

// DesignDocID returns the document id under which a design is stored
func DesignDocID(design string) string {
	return designPrefix + design
}

// IsDesignDoc reports whether id names a design document
func IsDesignDoc(id string) bool {
	return strings.HasPrefix(id, designPrefix)
}

// ViewPath joins a design and view name as used by Query
func ViewPath(design, view string) string {
	return design + "/" + view
}

// NewDesignDoc lists the view names of views in a stable order
func NewDesignDoc(views Views) DesignDoc {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return DesignDoc{Views: names}
}

// NewID returns a store-assigned document id
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Decode parses stored JSON into a Document
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Encode marshals doc for storage. Raw JSON is passed through unchanged.
func Encode(doc any) ([]byte, error) {
	switch v := doc.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// MergeFields overlays fields onto stored JSON and returns the new encoding
func MergeFields(data []byte, fields map[string]any) ([]byte, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return Encode(doc)
}

// Emit runs a map function over a stored document. Design documents and
// undecodable documents never emit.
func Emit(fn MapFunc, id string, data []byte) (string, bool) {
	if IsDesignDoc(id) {
		return "", false
	}
	doc, err := Decode(data)
	if err != nil {
		return "", false
	}
	return fn(doc)
}

// SortRows orders rows by key, then document id
func SortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].ID < rows[j].ID
	})
}

// Truthy mirrors the truthiness test map functions apply to document fields
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
