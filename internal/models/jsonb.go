package models

// JSONB is a free-form document stored in a jsonb column.
type JSONB map[string]interface{}
