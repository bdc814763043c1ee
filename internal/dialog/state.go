package dialog

// State is the current position of a dialog session in the intake flow.
type State string

const (
	StateGreet              State = "GREET"
	StateCollectingType     State = "COLLECTING_TYPE"
	StateCollectingLocation State = "COLLECTING_LOCATION"
	StateCollectingPeople   State = "COLLECTING_PEOPLE"
	StateConfirming         State = "CONFIRMING"
	StateComplete           State = "COMPLETE"
)
