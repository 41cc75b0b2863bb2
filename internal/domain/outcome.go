package domain

// AttemptOutcome is how a single upload attempt ended.
type AttemptOutcome string

const (
	AttemptPending          AttemptOutcome = "pending"
	AttemptSuccess          AttemptOutcome = "success"
	AttemptRejectedTooLarge AttemptOutcome = "rejected-too-large"
	AttemptRejectedFace     AttemptOutcome = "rejected-face-error"
	AttemptRejectedOther    AttemptOutcome = "rejected-other"
	AttemptNetworkError     AttemptOutcome = "network-error"
)

// UploadAttempt records one submission of the registration form.
// MaxDimension 0 means the original, unresized photo was sent.
type UploadAttempt struct {
	Label        string
	MaxDimension int
	Quality      int
	Filename     string
	StatusCode   int
	Outcome      AttemptOutcome
}

// ErrorKind is the client-observable failure taxonomy of a registration.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindInvalidRequest        ErrorKind = "InvalidRequest"
	KindAuth                  ErrorKind = "AuthError"
	KindNoFaceDetected        ErrorKind = "NoFaceDetected"
	KindMultipleFacesDetected ErrorKind = "MultipleFacesDetected"
	KindPayloadTooLarge       ErrorKind = "PayloadTooLarge"
	KindServerRejected        ErrorKind = "ServerRejected"
	KindNetworkError          ErrorKind = "NetworkError"
)

// RegistrationOutcome is the terminal result of one registration call.
type RegistrationOutcome struct {
	EmployeeID string // server-assigned, set only on success
	ClientRef  string // client-generated, informational

	ErrorKind     ErrorKind
	UserMessage   string
	StatusCode    int
	ServerCode    string
	ServerMessage string

	Attempts []UploadAttempt
}

func (o RegistrationOutcome) Success() bool {
	return o.ErrorKind == KindNone && o.EmployeeID != ""
}

// NetworkCalls counts attempts that were actually sent.
func (o RegistrationOutcome) NetworkCalls() int {
	n := 0
	for _, a := range o.Attempts {
		if a.Outcome != AttemptPending {
			n++
		}
	}
	return n
}
