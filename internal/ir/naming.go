package ir

import "strings"

// AliasSeparator joins a source alias and a column name in projected rows.
const AliasSeparator = "__"

// MatchingDataKey is the property that holds rows joined for matching.
const MatchingDataKey = "_matchingData"

// JoinDataKey is the property that holds pivot columns of a belongsToMany row.
const JoinDataKey = "_joinData"

// AliasField returns the projected column name for field on alias.
//
//	AliasField("Authors", "id") == "Authors__id"
func AliasField(alias, field string) string {
	return alias + AliasSeparator + field
}

// SplitAliasField is the inverse of AliasField.
func SplitAliasField(column string) (alias, field string, ok bool) {
	return strings.Cut(column, AliasSeparator)
}

// JoinPath appends name to a dot-joined path.
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
