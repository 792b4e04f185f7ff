package constants

// Relationship reason codes
const (
	// ReasonIntraRow links two columns of the same row
	ReasonIntraRow = "intra-row"
	// ReasonSemantic links columns of different rows
	ReasonSemantic = "semantic"
	// ReasonUnknown is reported for relationships stored without a reason
	ReasonUnknown = "N/A"
)

// Relationship generation constants
const (
	// IntraRowMinColumns is the smallest row that gets intra-row relationships
	IntraRowMinColumns = 4
	// IntraRowFanout is how many sibling columns each column is linked to
	IntraRowFanout = 3
)

// Graph assembly constants
const (
	// DefaultHops is the neighborhood radius used for highlighting
	DefaultHops = 2
	// EdgeWeight is the constant weight carried by every assembled edge
	EdgeWeight = 1
	// MissingTags is reported for nodes whose row can no longer be found
	MissingTags = "N/A"
)

// Change notification
const (
	// EventGraphUpdated is broadcast after every successful row write
	EventGraphUpdated = "graphUpdated"
)
