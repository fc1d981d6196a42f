// Package configutil registers config defaults so every key can be overridden from the environment.
package configutil

// SetDefault is implemented by *viper.Viper.
type SetDefault interface {
	SetDefault(key string, value any)
}

// SetDefaultFunc is a func implementing SetDefault. A nil func ignores all keys.
type SetDefaultFunc func(key string, value any)

// SetDefault implements SetDefault.
func (f SetDefaultFunc) SetDefault(key string, value any) {
	if f != nil {
		f(key, value)
	}
}

// Prefix returns a SetDefault registering every key below prefix on i,
// e.g. "bind" becomes "config.bind" for the prefix "config".
func Prefix(i SetDefault, prefix string) SetDefault {
	return SetDefaultFunc(func(key string, value any) {
		i.SetDefault(prefix+"."+key, value)
	})
}
