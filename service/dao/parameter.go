package dao

// Parameter names understood by the session DAOs.
const (
	ParamStatus     = "Status"
	ParamTestFile   = "TestFile"
	ParamLauncherID = "LauncherID"
)

// Parameter is a single equality (or any-of) filter.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a filter; several values mean any-of.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
