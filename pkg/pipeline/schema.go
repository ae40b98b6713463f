package pipeline

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Schema describes the structure of a dataset.
type Schema struct {
	FeatureNames []string
	Types        []string // gota series types, e.g. "float", "string"
}

// SchemaOf reads the column names and types of df.
func SchemaOf(df dataframe.DataFrame) Schema {
	s := Schema{FeatureNames: df.Names()}
	for _, t := range df.Types() {
		s.Types = append(s.Types, string(t))
	}
	return s
}

func (s Schema) String() string {
	parts := make([]string, len(s.FeatureNames))
	for i, name := range s.FeatureNames {
		parts[i] = fmt.Sprintf("%s:%s", name, s.Types[i])
	}
	return strings.Join(parts, ", ")
}
