package criteria

import (
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
)

// Match reports whether the session satisfies every parameter. Unknown
// parameter names are ignored.
func Match(s *session.Session, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		var actual string
		switch parameter.Name {
		case dao.ParamStatus:
			actual = string(s.Status)
		case dao.ParamTestFile:
			actual = s.TestFile
		case dao.ParamLauncherID:
			actual = s.LauncherID
		default:
			continue
		}
		if !matchValue(actual, parameter.Value) {
			return false
		}
	}
	return true
}

func matchValue(actual string, expected interface{}) bool {
	switch value := expected.(type) {
	case string:
		return actual == value
	case []string:
		for _, candidate := range value {
			if actual == candidate {
				return true
			}
		}
		return false
	case session.Status:
		return actual == string(value)
	}
	return true
}
