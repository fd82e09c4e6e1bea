package record

// LoadStatus describes whether a Record reflects a persisted row.
type LoadStatus int

const (
	// NotLoaded is the initial state: the record has never been queried.
	NotLoaded LoadStatus = iota
	// Loaded means the record was populated from a matching row.
	Loaded
	// NotFound means a load query matched zero rows; field data was cleared.
	NotFound
)

func (s LoadStatus) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case NotFound:
		return "not found"
	}
	return "not loaded"
}
