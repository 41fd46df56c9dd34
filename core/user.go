package core

// User is the profile of the person behind a session.
type User struct {
	ID       string `json:"userId" yaml:"id"`
	Type     string `json:"userType" yaml:"type"`
	Name     string `json:"userName" yaml:"name"`
	GroupID  string `json:"unitId" yaml:"group_id"`
	SchoolID string `json:"schoolId" yaml:"school_id"`
}
