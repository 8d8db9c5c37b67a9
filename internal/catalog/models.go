// Package catalog holds the model universe: named apps, each contributing a set of
// declared models loaded from manifest files. Schema scope resolution and type
// generation both read from here.
package catalog

// App is one named group of models, loaded from a manifest directory.
type App struct {
	Name   string  `json:"app"`
	Doc    string  `json:"doc,omitempty"`
	Models []Model `json:"models"`
	// Dir is the manifest directory the app was loaded from, when file-loaded.
	Dir string `json:"-"`
}

// Model is a declared data model rendered into a GraphQL object type.
type Model struct {
	Name   string  `json:"name"`
	Doc    string  `json:"doc,omitempty"`
	Fields []Field `json:"fields"`
}

// Field is a single model field.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	// Relation names another model this field points at; Type then describes the
	// cardinality ("one" or "many").
	Relation string `json:"relation,omitempty"`
	Doc      string `json:"doc,omitempty"`
}

// QualifiedName returns "app.Model" for a model in the given app.
func (m Model) QualifiedName(app string) string {
	return app + "." + m.Name
}
