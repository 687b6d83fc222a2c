package store

import "github.com/viant/wtr/runtime/session"

// Filter narrows a snapshot; zero values match everything.
type Filter struct {
	TestFile   string
	LauncherID string
	Statuses   []session.Status
}

func (f *Filter) matches(s *session.Session) bool {
	if f == nil {
		return true
	}
	if f.TestFile != "" && f.TestFile != s.TestFile {
		return false
	}
	if f.LauncherID != "" && f.LauncherID != s.LauncherID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, status := range f.Statuses {
		if status == s.Status {
			return true
		}
	}
	return false
}
