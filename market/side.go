package market

// Side is the direction of a position or intent.
type Side int

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Opposite returns the reversed side.
func (s Side) Opposite() Side { return -s }
