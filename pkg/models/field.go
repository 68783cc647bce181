package models

// DataType is the declared type of a dataset field.
type DataType string

const (
	DataTypeString    DataType = "STRING"
	DataTypeInteger   DataType = "INTEGER"
	DataTypeDecimal   DataType = "DECIMAL"
	DataTypeBoolean   DataType = "BOOLEAN"
	DataTypeDate      DataType = "DATE"
	DataTypeTimestamp DataType = "TIMESTAMP"
	DataTypeJSON      DataType = "JSON"
)

// DatasetField is one column of a dataset's target schema.
type DatasetField struct {
	ID          string   `json:"id" db:"dataset_field_id"`
	DatasetID   string   `json:"dataset_id" db:"dataset_id"`
	Name        string   `json:"name" db:"name"`
	DataType    DataType `json:"dtype" db:"dtype"`
	Nullable    bool     `json:"is_nullable" db:"is_nullable"`
	Unique      bool     `json:"is_unique" db:"is_unique"`
	Position    *int     `json:"position,omitempty" db:"position"`
	DefaultExpr *string  `json:"default_expr,omitempty" db:"default_expr"`
}

// TransformKind is the scalar transform applied to a mapped value.
type TransformKind string

const (
	TransformNone      TransformKind = "NONE"
	TransformLowercase TransformKind = "LOWERCASE"
	TransformUppercase TransformKind = "UPPERCASE"
	TransformTrim      TransformKind = "TRIM"
	TransformInt       TransformKind = "INT"
	TransformFloat     TransformKind = "FLOAT"
)

// FieldMapping binds a dataset field to an extraction path. A nil SourceID means the mapping
// is not scoped to a source and is evaluated against the globally merged payload.
type FieldMapping struct {
	ID            string        `json:"id" db:"dataset_mapping_id"`
	DatasetID     string        `json:"dataset_id" db:"dataset_id"`
	SourceID      *string       `json:"source_id,omitempty" db:"source_id"`
	FieldID       string        `json:"dataset_field_id" db:"dataset_field_id"`
	SrcPath       string        `json:"src_path" db:"src_path"`
	SrcJSONPath   string        `json:"src_json_path" db:"src_json_path"`
	TransformType TransformKind `json:"transform_type" db:"transform_type"`
	Required      bool          `json:"required" db:"required"`
	Priority      *int          `json:"priority,omitempty" db:"priority"`
}

// Path returns SrcPath, falling back to SrcJSONPath.
func (m FieldMapping) Path() string {
	if m.SrcPath != "" {
		return m.SrcPath
	}
	return m.SrcJSONPath
}
