package param

// ConfigError reports an invalid parameter spec or space. It is raised
// during construction, before any evaluation occurs.
type ConfigError struct {
	Param  string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	msg := "invalid parameter configuration"
	if e.Param != "" {
		msg += " for " + e.Param
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	return msg
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// ErrConfig matches any ConfigError via errors.Is.
var ErrConfig = &ConfigError{}
