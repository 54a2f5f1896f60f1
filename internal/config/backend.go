package config

// Backend persists non-secret settings between runs. Keys are the dotted
// names from the key table, e.g. "spin.steps" or "advisor.provider".
//
// A missing key reports ok=false with a nil error; only unreadable or
// mistyped values are errors.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
